package service

import (
	"errors"
	"fmt"
	"log"
	"math"

	"parkspot/internal/apperrors"
	"parkspot/internal/auth"
	"parkspot/internal/db"
	"parkspot/internal/entities"
)

// BookingService ties the admission and lifecycle cores to their external
// collaborators: Stripe for payment authorization and the sender for
// notifications. The core decisions stay in AdmissionService and
// LifecycleService; this layer only orchestrates.
type BookingService struct {
	admission *AdmissionService
	lifecycle *LifecycleService
	repo      BookingRepository
	stripe    PaymentProvider
	sender    *SenderService
}

func NewBookingService(
	admission *AdmissionService,
	lifecycle *LifecycleService,
	repo BookingRepository,
	stripe PaymentProvider,
	sender *SenderService,
) *BookingService {
	return &BookingService{
		admission: admission,
		lifecycle: lifecycle,
		repo:      repo,
		stripe:    stripe,
		sender:    sender,
	}
}

// CreateBooking admits the request and, on acceptance, opens a checkout
// session for the computed amount. A failed session creation leaves the
// reservation pending; the expiry sweep reclaims the slot if payment never
// arrives.
func (s *BookingService) CreateBooking(req *entities.BookingRequest) (*entities.BookingResponse, error) {
	reservation, err := s.admission.RequestBooking(req)
	if err != nil {
		return nil, err
	}

	resp := &entities.BookingResponse{
		ReservationID: reservation.ID,
		Code:          reservation.Code,
		SpotID:        reservation.SpotID,
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		TotalAmount:   reservation.TotalAmount,
		Status:        reservation.Status,
	}

	amountCents := int64(math.Round(reservation.TotalAmount * 100))
	url, sessionID, err := s.stripe.CreateCheckoutSession(amountCents, "eur", reservation.Code, req.UserEmail)
	if err != nil {
		log.Printf("Checkout session for booking %s failed: %v", reservation.Code, err)
		return resp, nil
	}
	if err := s.repo.SetStripeSession(reservation.ID, sessionID); err != nil {
		log.Printf("Could not persist session for booking %s: %v", reservation.Code, err)
	}
	resp.CheckoutURL = url
	return resp, nil
}

// GetBooking fetches a reservation by code for its requester, owner or an
// admin.
func (s *BookingService) GetBooking(code string, actor auth.Identity) (*db.Reservation, error) {
	res, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && actor.UserID != res.RequesterID && actor.UserID != res.OwnerID {
		return nil, apperrors.ErrNotAllowed
	}
	return res, nil
}

// ListBookings returns the caller's own reservations.
func (s *BookingService) ListBookings(actor auth.Identity) ([]db.Reservation, error) {
	return s.repo.ListByRequester(actor.UserID)
}

// CancelBooking runs the lifecycle cancellation policy and refunds paid
// reservations. Refund failures are logged, not rolled back: the slot is
// already released and the refund can be replayed by support.
func (s *BookingService) CancelBooking(code string, actor auth.Identity) (*db.Reservation, error) {
	res, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.lifecycle.Cancel(res.ID, actor)
	if err != nil {
		return nil, err
	}

	if res.PaymentStatus == db.PaymentSucceeded && res.StripeSessionID != "" {
		if err := s.stripe.RefundPaymentBySessionID(res.StripeSessionID); err != nil {
			log.Printf("Refund for booking %s failed: %v", res.Code, err)
		}
	}

	s.sender.NotifyStatusChange(cancelled, db.StatusCancelled)
	return cancelled, nil
}

// CancelByID is the admin override entry point used by the back office.
func (s *BookingService) CancelByID(id string, actor auth.Identity) (*db.Reservation, error) {
	res, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return s.CancelBooking(res.Code, actor)
}

// HandlePaymentSucceeded consumes a payment-success event for a checkout
// session: pending_payment moves to confirmed. Stripe delivers events
// at least once, so a stale transition is not enough to conclude the payment
// was late; the reconciliation below looks at the current state.
func (s *BookingService) HandlePaymentSucceeded(sessionID string) error {
	res, err := s.repo.GetByStripeSessionID(sessionID)
	if err != nil {
		return fmt.Errorf("payment event for unknown session %s: %w", sessionID, err)
	}

	confirmed, err := s.lifecycle.ConfirmPayment(res.ID)
	if errors.Is(err, apperrors.ErrStaleState) {
		return s.reconcileStalePayment(sessionID)
	}
	if err != nil {
		return err
	}

	if err := s.repo.SetPaymentStatus(res.ID, db.PaymentSucceeded); err != nil {
		return err
	}
	s.sender.NotifyStatusChange(confirmed, db.StatusConfirmed)
	return nil
}

// reconcileStalePayment handles a payment-success event whose confirm lost
// the compare-and-swap. Only a reservation that no longer holds its slot
// (expired or cancelled before the payment landed) gets refunded; any other
// state means a duplicate delivery for an already-processed payment, which
// is acknowledged without touching the money. A failed refund is returned so
// the provider retries the event.
func (s *BookingService) reconcileStalePayment(sessionID string) error {
	res, err := s.repo.GetByStripeSessionID(sessionID)
	if err != nil {
		return err
	}

	switch res.Status {
	case db.StatusExpired, db.StatusCancelled:
		log.Printf("Payment for booking %s arrived after state %s; refunding", res.Code, res.Status)
		if err := s.stripe.RefundPaymentBySessionID(sessionID); err != nil {
			return fmt.Errorf("late-payment refund for booking %s: %w", res.Code, err)
		}
		return s.repo.SetPaymentStatus(res.ID, db.PaymentRefunded)
	default:
		// Duplicate delivery. Record the payment if an earlier attempt
		// failed between the confirm and the bookkeeping write.
		if res.PaymentStatus != db.PaymentSucceeded {
			return s.repo.SetPaymentStatus(res.ID, db.PaymentSucceeded)
		}
		return nil
	}
}

// HandleChargeRefunded records a refund reported by the payment provider.
func (s *BookingService) HandleChargeRefunded(paymentIntentID string) error {
	sessionID, err := s.stripe.SessionIDByPaymentIntentID(paymentIntentID)
	if err != nil {
		return err
	}
	res, err := s.repo.GetByStripeSessionID(sessionID)
	if err != nil {
		return err
	}
	return s.repo.SetPaymentStatus(res.ID, db.PaymentRefunded)
}
