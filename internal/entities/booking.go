package entities

import "time"

// BookingRequest carries everything the admission controller needs to decide
// a booking. RequesterID comes from the identity provider; email and phone
// are denormalized contact details for notifications.
type BookingRequest struct {
	SpotID      string
	RequesterID string
	Interval    TimeInterval
	UserEmail   string
	UserPhone   string
}

// BookingResponse is returned to the presentation layer after a successful
// admission: the reservation reference plus the payment checkout URL.
type BookingResponse struct {
	ReservationID string    `json:"reservation_id"`
	Code          string    `json:"code"`
	SpotID        string    `json:"spot_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	CheckoutURL   string    `json:"checkout_url,omitempty"`
}

// AvailabilityResponse reports an advisory conflict check. It can go stale
// the moment it is produced; only the atomic insert is authoritative.
type AvailabilityResponse struct {
	SpotID             string    `json:"spot_id"`
	RequestedStartTime time.Time `json:"requested_start_time"`
	RequestedEndTime   time.Time `json:"requested_end_time"`
	IsAvailable        bool      `json:"is_available"`
	Message            string    `json:"message,omitempty"`
}

// BookingEmailData feeds the notification templates.
type BookingEmailData struct {
	ReservationCode    string
	StartTimeFormatted string
	EndTimeFormatted   string
	TotalAmount        float64
	Status             string
}
