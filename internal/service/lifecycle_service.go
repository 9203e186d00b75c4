package service

import (
	"time"

	"parkspot/internal/apperrors"
	"parkspot/internal/auth"
	"parkspot/internal/db"
)

// BookingPolicy holds the configurable timing knobs of the lifecycle.
type BookingPolicy struct {
	// PendingPaymentTTL bounds how long an unpaid reservation may hold a
	// slot before the expiry sweep releases it.
	PendingPaymentTTL time.Duration
	// CancellationCutoff is how long before the interval start a confirmed
	// reservation can still be cancelled.
	CancellationCutoff time.Duration
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		PendingPaymentTTL:  15 * time.Minute,
		CancellationCutoff: 12 * time.Hour,
	}
}

// lifecycleEdges enumerates the legal state machine transitions.
var lifecycleEdges = map[string][]string{
	db.StatusPendingPayment: {db.StatusConfirmed, db.StatusCancelled, db.StatusExpired},
	db.StatusConfirmed:      {db.StatusActive, db.StatusCancelled},
	db.StatusActive:         {db.StatusCompleted, db.StatusCancelled},
}

func validTransition(from, to string) bool {
	for _, t := range lifecycleEdges[from] {
		if t == to {
			return true
		}
	}
	return false
}

// LifecycleService drives reservations through their states. Every
// transition goes through the store's compare-and-swap; a lost race surfaces
// as ErrStaleState and is never retried here.
type LifecycleService struct {
	store  ReservationStore
	policy BookingPolicy
	clock  Clock
}

func NewLifecycleService(store ReservationStore, policy BookingPolicy, clock Clock) *LifecycleService {
	return &LifecycleService{store: store, policy: policy, clock: clock}
}

func (s *LifecycleService) Policy() BookingPolicy { return s.policy }

// Transition applies a single state machine edge. Illegal edges fail before
// touching the store.
func (s *LifecycleService) Transition(id, from, to string) (*db.Reservation, error) {
	if !validTransition(from, to) {
		return nil, apperrors.ErrInvalidTransition
	}
	return s.store.Transition(id, from, to)
}

// ConfirmPayment moves a reservation to confirmed on an external
// payment-success event.
func (s *LifecycleService) ConfirmPayment(id string) (*db.Reservation, error) {
	return s.Transition(id, db.StatusPendingPayment, db.StatusConfirmed)
}

// Cancel applies the cancellation policy for the caller's role and the
// reservation's current state, then attempts the transition. Cancelling a
// pending or confirmed reservation releases its interval immediately.
func (s *LifecycleService) Cancel(id string, actor auth.Identity) (*db.Reservation, error) {
	res, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	isAdmin := actor.Role == auth.RoleAdmin
	isRequester := actor.UserID == res.RequesterID
	isOwner := actor.UserID == res.OwnerID

	switch res.Status {
	case db.StatusPendingPayment:
		if !isAdmin && !isRequester {
			return nil, apperrors.ErrNotAllowed
		}
	case db.StatusConfirmed:
		if !isAdmin && !isRequester && !isOwner {
			return nil, apperrors.ErrNotAllowed
		}
		cutoff := res.StartTime.Add(-s.policy.CancellationCutoff)
		if !s.clock.Now().Before(cutoff) {
			return nil, apperrors.ErrCancellationWindowClosed
		}
	case db.StatusActive:
		// Emergency override only; everyone else is past their window.
		if !isAdmin {
			return nil, apperrors.ErrCancellationWindowClosed
		}
	default:
		return nil, apperrors.ErrInvalidTransition
	}

	return s.store.Transition(id, res.Status, db.StatusCancelled)
}

// NextTimeTransition is the pure time-driven rule: given a reservation and
// the current instant it names the state the reservation is due for, or
// false when nothing is due. The external poller applies the result through
// Transition.
func (s *LifecycleService) NextTimeTransition(res *db.Reservation, now time.Time) (string, bool) {
	switch res.Status {
	case db.StatusPendingPayment:
		if !now.Before(res.CreatedAt.Add(s.policy.PendingPaymentTTL)) {
			return db.StatusExpired, true
		}
	case db.StatusConfirmed:
		if !now.Before(res.StartTime) {
			return db.StatusActive, true
		}
	case db.StatusActive:
		if !now.Before(res.EndTime) {
			return db.StatusCompleted, true
		}
	}
	return "", false
}
