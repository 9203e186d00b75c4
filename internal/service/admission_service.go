package service

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
	"parkspot/internal/entities"
	"parkspot/internal/utils"
)

// AdmissionService decides whether a booking request can be granted. The
// decision sequence is: interval validity, spot eligibility, price, then the
// store's atomic insert. The insert alone is authoritative; the preceding
// overlap read only lets obviously doomed requests fail fast.
type AdmissionService struct {
	store ReservationStore
	spots SpotCatalog
}

func NewAdmissionService(store ReservationStore, spots SpotCatalog) *AdmissionService {
	return &AdmissionService{store: store, spots: spots}
}

// CheckAvailability reports whether the interval currently looks free.
// The answer can be stale by the time the caller acts on it.
func (s *AdmissionService) CheckAvailability(spotID string, iv entities.TimeInterval) (*entities.AvailabilityResponse, error) {
	resp := &entities.AvailabilityResponse{
		SpotID:             spotID,
		RequestedStartTime: iv.Start,
		RequestedEndTime:   iv.End,
	}

	constraints, err := s.spots.Constraints(spotID)
	if err != nil {
		return nil, err
	}
	if !constraints.IsAvailable {
		resp.Message = apperrors.ErrSpotUnavailable.Error()
		return resp, nil
	}
	if !constraints.AllowsInterval(iv) {
		resp.Message = apperrors.ErrOutsideAvailabilityWindow.Error()
		return resp, nil
	}

	overlapping, err := s.store.FindActiveOverlapping(spotID, iv)
	if err != nil {
		return nil, fmt.Errorf("error checking availability: %w", err)
	}
	if len(overlapping) > 0 {
		resp.Message = apperrors.ErrSlotConflict.Error()
		return resp, nil
	}

	resp.IsAvailable = true
	return resp, nil
}

// RequestBooking admits or rejects a booking request. On success the
// reservation is persisted in pending_payment; its fate from then on is
// governed solely by the lifecycle state machine. On conflict the caller
// gets ErrSlotConflict and must pick another interval; there is no retry and
// no queueing. Races resolve first-committed-wins at the store.
func (s *AdmissionService) RequestBooking(req *entities.BookingRequest) (*db.Reservation, error) {
	iv, err := entities.NewTimeInterval(req.Interval.Start, req.Interval.End)
	if err != nil {
		return nil, err
	}

	constraints, err := s.spots.Constraints(req.SpotID)
	if err != nil {
		return nil, err
	}
	if !constraints.IsAvailable {
		return nil, apperrors.ErrSpotUnavailable
	}
	if !constraints.AllowsInterval(iv) {
		return nil, apperrors.ErrOutsideAvailabilityWindow
	}

	totalAmount := roundAmount(constraints.PricePerHour * iv.DurationHours())

	// Fail fast on an already-taken slot; the insert below re-checks
	// atomically so a stale read here costs nothing but a round trip.
	overlapping, err := s.store.FindActiveOverlapping(req.SpotID, iv)
	if err != nil {
		return nil, fmt.Errorf("error pre-checking conflicts: %w", err)
	}
	if len(overlapping) > 0 {
		return nil, apperrors.ErrSlotConflict
	}

	now := time.Now().UTC()
	reservation := &db.Reservation{
		ID:            uuid.NewString(),
		Code:          utils.NewBookingCode(),
		SpotID:        req.SpotID,
		RequesterID:   req.RequesterID,
		OwnerID:       constraints.OwnerID,
		StartTime:     iv.Start,
		EndTime:       iv.End,
		TotalAmount:   totalAmount,
		Status:        db.StatusPendingPayment,
		PaymentStatus: db.PaymentPending,
		UserEmail:     req.UserEmail,
		UserPhone:     req.UserPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Insert(reservation); err != nil {
		return nil, err
	}

	log.Printf("Admitted booking %s for spot %s [%s, %s)",
		reservation.Code, reservation.SpotID,
		iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
	return reservation, nil
}

// roundAmount keeps monetary amounts at cent precision.
func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
