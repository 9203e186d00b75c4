package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
	"parkspot/internal/entities"
)

// fakeBookingRepo extends memStore with the payment bookkeeping the
// orchestration layer uses.
type fakeBookingRepo struct {
	*memStore
	sessMu   sync.Mutex
	sessions map[string]string
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{memStore: newMemStore(), sessions: make(map[string]string)}
}

func (f *fakeBookingRepo) GetByStripeSessionID(sessionID string) (*db.Reservation, error) {
	f.sessMu.Lock()
	id, ok := f.sessions[sessionID]
	f.sessMu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return f.Get(id)
}

func (f *fakeBookingRepo) SetStripeSession(id, sessionID string) error {
	f.memStore.mu.Lock()
	res, ok := f.byID[id]
	if ok {
		res.StripeSessionID = sessionID
	}
	f.memStore.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	f.sessMu.Lock()
	f.sessions[sessionID] = id
	f.sessMu.Unlock()
	return nil
}

func (f *fakeBookingRepo) SetPaymentStatus(id, paymentStatus string) error {
	f.memStore.mu.Lock()
	defer f.memStore.mu.Unlock()
	res, ok := f.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	res.PaymentStatus = paymentStatus
	return nil
}

func (f *fakeBookingRepo) ListByRequester(requesterID string) ([]db.Reservation, error) {
	f.memStore.mu.Lock()
	defer f.memStore.mu.Unlock()
	var out []db.Reservation
	for _, res := range f.byID {
		if res.RequesterID == requesterID {
			out = append(out, *res)
		}
	}
	return out, nil
}

// fakePayments records checkout sessions and refunds.
type fakePayments struct {
	mu       sync.Mutex
	sessions int
	refunds  []string
}

func (f *fakePayments) CreateCheckoutSession(amountCents int64, currency, bookingCode, customerEmail string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	id := fmt.Sprintf("sess-%d", f.sessions)
	return "https://pay.example/" + id, id, nil
}

func (f *fakePayments) RefundPaymentBySessionID(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, sessionID)
	return nil
}

func (f *fakePayments) SessionIDByPaymentIntentID(paymentIntentID string) (string, error) {
	return "", apperrors.ErrNotFound
}

func (f *fakePayments) refunded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunds...)
}

type bookingFixture struct {
	svc       *BookingService
	lifecycle *LifecycleService
	repo      *fakeBookingRepo
	payments  *fakePayments
	clock     *fakeClock
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	repo := newFakeBookingRepo()
	catalog := &fakeCatalog{spots: map[string]*entities.SpotConstraints{
		testSpotID: {
			SpotID:        testSpotID,
			OwnerID:       "owner-1",
			PricePerHour:  4.0,
			AvailableDays: []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
			OpenTime:      "08:00",
			CloseTime:     "18:00",
			IsAvailable:   true,
		},
	}}
	admission := NewAdmissionService(repo, catalog)
	clock := &fakeClock{t: monday}
	lifecycle := NewLifecycleService(repo, DefaultBookingPolicy(), clock)
	payments := &fakePayments{}
	svc := NewBookingService(admission, lifecycle, repo, payments, NewSenderService())
	return &bookingFixture{svc: svc, lifecycle: lifecycle, repo: repo, payments: payments, clock: clock}
}

func (f *bookingFixture) create(t *testing.T, startHour, endHour int) (*entities.BookingResponse, string) {
	t.Helper()
	resp, err := f.svc.CreateBooking(bookingReq(testSpotID, startHour, endHour))
	require.NoError(t, err)
	require.NotEmpty(t, resp.CheckoutURL)

	res, err := f.repo.Get(resp.ReservationID)
	require.NoError(t, err)
	require.NotEmpty(t, res.StripeSessionID)
	return resp, res.StripeSessionID
}

func TestHandlePaymentSucceededConfirms(t *testing.T) {
	f := newBookingFixture(t)
	resp, sess := f.create(t, 10, 12)

	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))

	res, err := f.repo.Get(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, res.Status)
	assert.Equal(t, db.PaymentSucceeded, res.PaymentStatus)
	assert.Empty(t, f.payments.refunded())
}

func TestDuplicatePaymentEventIsIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	resp, sess := f.create(t, 10, 12)

	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))
	// Stripe redelivers the same event; the booking stays confirmed and
	// the payment must not be refunded.
	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))

	res, err := f.repo.Get(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, res.Status)
	assert.Equal(t, db.PaymentSucceeded, res.PaymentStatus)
	assert.Empty(t, f.payments.refunded())
}

func TestPaymentEventRetryAfterRecordFailure(t *testing.T) {
	f := newBookingFixture(t)
	resp, sess := f.create(t, 10, 12)

	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))
	// the first delivery confirmed the booking but the payment write was
	// lost before commit; the provider retries the event
	require.NoError(t, f.repo.SetPaymentStatus(resp.ReservationID, db.PaymentPending))

	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))

	res, err := f.repo.Get(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, res.Status)
	assert.Equal(t, db.PaymentSucceeded, res.PaymentStatus)
	assert.Empty(t, f.payments.refunded())
}

func TestPaymentAfterExpiryIsRefunded(t *testing.T) {
	f := newBookingFixture(t)
	resp, sess := f.create(t, 10, 12)

	_, err := f.lifecycle.Transition(resp.ReservationID, db.StatusPendingPayment, db.StatusExpired)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))

	res, err := f.repo.Get(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusExpired, res.Status)
	assert.Equal(t, db.PaymentRefunded, res.PaymentStatus)
	assert.Equal(t, []string{sess}, f.payments.refunded())
}

func TestPaymentAfterCancellationIsRefunded(t *testing.T) {
	f := newBookingFixture(t)
	resp, sess := f.create(t, 14, 16)

	_, err := f.lifecycle.Cancel(resp.ReservationID, requester)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))

	res, err := f.repo.Get(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, res.Status)
	assert.Equal(t, db.PaymentRefunded, res.PaymentStatus)
	assert.Equal(t, []string{sess}, f.payments.refunded())
}

func TestCancelBookingRefundsPaidReservation(t *testing.T) {
	f := newBookingFixture(t)
	resp, sess := f.create(t, 10, 12)
	require.NoError(t, f.svc.HandlePaymentSucceeded(sess))

	f.clock.set(monday.Add(10*time.Hour).Add(-24 * time.Hour))
	cancelled, err := f.svc.CancelBooking(resp.Code, requester)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
	assert.Equal(t, []string{sess}, f.payments.refunded())
}
