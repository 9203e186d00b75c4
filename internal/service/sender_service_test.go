package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parkspot/internal/db"
)

func TestBookingEmailContent(t *testing.T) {
	res := &db.Reservation{
		Code:        "AB12CD34",
		StartTime:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		TotalAmount: 8,
	}

	subject, body := bookingEmailContent(res, db.StatusConfirmed)

	assert.Contains(t, subject, "AB12CD34")
	assert.Contains(t, subject, db.StatusConfirmed)
	assert.Contains(t, body, "AB12CD34")
	assert.Contains(t, body, "02 Jun 2025 10:00 UTC")
	assert.Contains(t, body, "02 Jun 2025 12:00 UTC")
	assert.Contains(t, body, "8.00 EUR")
}
