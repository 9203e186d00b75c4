package service

import (
	"time"

	"parkspot/internal/db"
	"parkspot/internal/entities"
)

// ReservationStore is the single shared mutable resource of the booking
// core. Insert must be atomic with respect to the overlap check so that two
// concurrent inserts for overlapping intervals can never both succeed, and
// Transition must be a compare-and-swap on the stored state. The Postgres
// implementation lives in internal/repository.
type ReservationStore interface {
	FindActiveOverlapping(spotID string, iv entities.TimeInterval) ([]db.Reservation, error)
	Insert(res *db.Reservation) error
	Transition(id, from, to string) (*db.Reservation, error)
	Get(id string) (*db.Reservation, error)
	GetByCode(code string) (*db.Reservation, error)
}

// BookingRepository extends the store with the payment bookkeeping and
// listing queries the orchestration layer needs.
type BookingRepository interface {
	ReservationStore
	GetByStripeSessionID(sessionID string) (*db.Reservation, error)
	SetStripeSession(id, sessionID string) error
	SetPaymentStatus(id, paymentStatus string) error
	ListByRequester(requesterID string) ([]db.Reservation, error)
}

// PaymentProvider is the external payment authorization service.
type PaymentProvider interface {
	CreateCheckoutSession(amountCents int64, currency, bookingCode, customerEmail string) (string, string, error)
	RefundPaymentBySessionID(sessionID string) error
	SessionIDByPaymentIntentID(paymentIntentID string) (string, error)
}

// SpotCatalog supplies read-only spot constraints per spot id.
type SpotCatalog interface {
	Constraints(spotID string) (*entities.SpotConstraints, error)
}

// Clock abstracts time for the lifecycle rules so cutoffs and expiry are
// testable without sleeping.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
