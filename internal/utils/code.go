package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewBookingCode returns a short human-readable booking reference. Codes are
// not the primary key; uniqueness is enforced by the database.
func NewBookingCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%08X", time.Now().UnixNano()%100000000)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
