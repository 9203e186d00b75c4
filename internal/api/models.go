package api

import (
	"encoding/json"
	"net/http"
	"time"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
)

// Availability
type AvailabilityRequest struct {
	SpotID    string    `json:"spot_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Booking
type CreateBookingRequest struct {
	SpotID    string    `json:"spot_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
}

type ReservationResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	SpotID        string    `json:"spot_id"`
	RequesterID   string    `json:"requester_id"`
	OwnerID       string    `json:"owner_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toReservationResponse(res *db.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            res.ID,
		Code:          res.Code,
		SpotID:        res.SpotID,
		RequesterID:   res.RequesterID,
		OwnerID:       res.OwnerID,
		StartTime:     res.StartTime,
		EndTime:       res.EndTime,
		TotalAmount:   res.TotalAmount,
		Status:        res.Status,
		PaymentStatus: res.PaymentStatus,
		CreatedAt:     res.CreatedAt,
		UpdatedAt:     res.UpdatedAt,
	}
}

// Spots
type CreateSpotRequest struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	PricePerHour  float64  `json:"price_per_hour"`
	AvailableDays []string `json:"available_days"`
	OpenTime      string   `json:"open_time"`
	CloseTime     string   `json:"close_time"`
}

type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps booking-core errors to distinct statuses and messages so
// callers can branch on conflict vs validation vs staleness.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
