package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot/internal/apperrors"
	"parkspot/internal/auth"
	"parkspot/internal/db"
	"parkspot/internal/entities"
)

var (
	requester = auth.Identity{UserID: "driver-1", Role: auth.RoleDriver}
	owner     = auth.Identity{UserID: "owner-1", Role: auth.RoleOwner}
	admin     = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	stranger  = auth.Identity{UserID: "driver-2", Role: auth.RoleDriver}
)

// lifecycleFixture wires admission + lifecycle over a shared memStore so
// cancellation/expiry tests can also exercise slot release via re-booking.
type lifecycleFixture struct {
	admission *AdmissionService
	lifecycle *LifecycleService
	store     *memStore
	clock     *fakeClock
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	admission, store := newTestAdmission()
	clock := &fakeClock{t: monday}
	lifecycle := NewLifecycleService(store, DefaultBookingPolicy(), clock)
	return &lifecycleFixture{admission: admission, lifecycle: lifecycle, store: store, clock: clock}
}

func (f *lifecycleFixture) book(t *testing.T, startHour, endHour int) *db.Reservation {
	t.Helper()
	res, err := f.admission.RequestBooking(bookingReq(testSpotID, startHour, endHour))
	require.NoError(t, err)
	return res
}

func TestConfirmPayment(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)

	confirmed, err := f.lifecycle.ConfirmPayment(res.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, confirmed.Status)

	// a duplicate payment event finds the state already moved
	_, err = f.lifecycle.ConfirmPayment(res.ID)
	assert.ErrorIs(t, err, apperrors.ErrStaleState)
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)

	_, err := f.lifecycle.Transition(res.ID, db.StatusPendingPayment, db.StatusActive)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.lifecycle.Transition(res.ID, db.StatusCompleted, db.StatusActive)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.lifecycle.Transition(res.ID, db.StatusExpired, db.StatusConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestTransitionUnknownReservation(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.lifecycle.ConfirmPayment("no-such-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)
	_, err := f.lifecycle.ConfirmPayment(res.ID)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.lifecycle.Transition(res.ID, db.StatusConfirmed, db.StatusActive)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrStaleState)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestCancelPendingByRequester(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)

	cancelled, err := f.lifecycle.Cancel(res.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
}

func TestCancelPendingRoleScreening(t *testing.T) {
	f := newLifecycleFixture(t)

	res := f.book(t, 10, 12)
	_, err := f.lifecycle.Cancel(res.ID, owner)
	assert.ErrorIs(t, err, apperrors.ErrNotAllowed, "owner cannot cancel an unpaid booking")

	_, err = f.lifecycle.Cancel(res.ID, stranger)
	assert.ErrorIs(t, err, apperrors.ErrNotAllowed)

	_, err = f.lifecycle.Cancel(res.ID, admin)
	assert.NoError(t, err)
}

func TestCancelConfirmedBeforeCutoffReleasesSlot(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)
	_, err := f.lifecycle.ConfirmPayment(res.ID)
	require.NoError(t, err)

	// well before the 12h cutoff
	f.clock.set(res.StartTime.Add(-24 * time.Hour))
	_, err = f.lifecycle.Cancel(res.ID, owner)
	require.NoError(t, err)

	// the interval is immediately bookable again
	_, err = f.admission.RequestBooking(bookingReq(testSpotID, 10, 12))
	assert.NoError(t, err)
}

func TestCancelConfirmedAfterCutoff(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)
	_, err := f.lifecycle.ConfirmPayment(res.ID)
	require.NoError(t, err)

	f.clock.set(res.StartTime.Add(-time.Hour))
	_, err = f.lifecycle.Cancel(res.ID, requester)
	assert.ErrorIs(t, err, apperrors.ErrCancellationWindowClosed)
}

func TestCancelActiveAdminOnly(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)
	_, err := f.lifecycle.ConfirmPayment(res.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(res.ID, db.StatusConfirmed, db.StatusActive)
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(res.ID, requester)
	assert.ErrorIs(t, err, apperrors.ErrCancellationWindowClosed)

	_, err = f.lifecycle.Cancel(res.ID, owner)
	assert.ErrorIs(t, err, apperrors.ErrCancellationWindowClosed)

	cancelled, err := f.lifecycle.Cancel(res.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
}

func TestCancelTerminalState(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)
	_, err := f.lifecycle.Cancel(res.ID, requester)
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(res.ID, admin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestExpiryReleasesSlot(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 9, 10)

	// the payment wait window elapses and the sweep expires the hold
	_, err := f.lifecycle.Transition(res.ID, db.StatusPendingPayment, db.StatusExpired)
	require.NoError(t, err)

	// the same interval is bookable again
	rebooked, err := f.admission.RequestBooking(bookingReq(testSpotID, 9, 10))
	require.NoError(t, err)
	assert.NotEqual(t, res.ID, rebooked.ID)
}

func TestNextTimeTransition(t *testing.T) {
	f := newLifecycleFixture(t)
	policy := f.lifecycle.Policy()

	created := monday.Add(8 * time.Hour)
	res := &db.Reservation{
		Status:    db.StatusPendingPayment,
		CreatedAt: created,
		StartTime: monday.Add(10 * time.Hour),
		EndTime:   monday.Add(12 * time.Hour),
	}

	_, due := f.lifecycle.NextTimeTransition(res, created.Add(policy.PendingPaymentTTL-time.Second))
	assert.False(t, due, "not due before the TTL elapses")

	to, due := f.lifecycle.NextTimeTransition(res, created.Add(policy.PendingPaymentTTL))
	assert.True(t, due)
	assert.Equal(t, db.StatusExpired, to)

	res.Status = db.StatusConfirmed
	_, due = f.lifecycle.NextTimeTransition(res, res.StartTime.Add(-time.Minute))
	assert.False(t, due)
	to, due = f.lifecycle.NextTimeTransition(res, res.StartTime)
	assert.True(t, due)
	assert.Equal(t, db.StatusActive, to)

	res.Status = db.StatusActive
	to, due = f.lifecycle.NextTimeTransition(res, res.EndTime)
	assert.True(t, due)
	assert.Equal(t, db.StatusCompleted, to)

	res.Status = db.StatusCompleted
	_, due = f.lifecycle.NextTimeTransition(res, res.EndTime.Add(time.Hour))
	assert.False(t, due, "terminal states have no time-driven edges")
}

func TestFullLifecycleHappyPath(t *testing.T) {
	f := newLifecycleFixture(t)
	res := f.book(t, 10, 12)

	confirmed, err := f.lifecycle.ConfirmPayment(res.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, confirmed.Status)

	active, err := f.lifecycle.Transition(res.ID, db.StatusConfirmed, db.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, db.StatusActive, active.Status)

	completed, err := f.lifecycle.Transition(res.ID, db.StatusActive, db.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, completed.Status)

	// a completed reservation no longer holds the interval
	overlapping, err := f.store.FindActiveOverlapping(testSpotID, entities.TimeInterval{
		Start: res.StartTime, End: res.EndTime,
	})
	require.NoError(t, err)
	assert.Empty(t, overlapping)
}
