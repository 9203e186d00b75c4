package db

import "time"

// Reservation lifecycle states. A reservation in one of the holder states
// occupies its interval for conflict checks; terminal states release it.
const (
	StatusPendingPayment = "pending_payment"
	StatusConfirmed      = "confirmed"
	StatusActive         = "active"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusExpired        = "expired"
)

// HolderStatuses are the states that hold a slot against new bookings.
var HolderStatuses = []string{StatusPendingPayment, StatusConfirmed, StatusActive}

// Payment states tracked alongside the reservation lifecycle.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentRefunded  = "refunded"
)

type Reservation struct {
	ID              string
	Code            string
	SpotID          string
	RequesterID     string
	OwnerID         string
	StartTime       time.Time
	EndTime         time.Time
	TotalAmount     float64
	Status          string
	PaymentStatus   string
	StripeSessionID string
	UserEmail       string
	UserPhone       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ParkingSpot struct {
	ID            string
	OwnerID       string
	Name          string
	Address       string
	PricePerHour  float64
	AvailableDays []string
	OpenTime      string
	CloseTime     string
	IsAvailable   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
