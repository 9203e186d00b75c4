package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"parkspot/internal/auth"
	"parkspot/internal/entities"
	"parkspot/internal/service"
)

type BookingHandler struct {
	Bookings  *service.BookingService
	Admission *service.AdmissionService
}

func NewBookingHandler(bookings *service.BookingService, admission *service.AdmissionService) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Admission: admission}
}

// CheckAvailability is the advisory pre-check; the create endpoint is the
// only authoritative answer.
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	iv, err := entities.NewTimeInterval(req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.Admission.CheckAvailability(req.SpotID, iv)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.Bookings.CreateBooking(&entities.BookingRequest{
		SpotID:      req.SpotID,
		RequesterID: identity.UserID,
		Interval:    entities.TimeInterval{Start: req.StartTime, End: req.EndTime},
		UserEmail:   req.Email,
		UserPhone:   req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	code := mux.Vars(r)["code"]
	res, err := h.Bookings.GetBooking(code, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reservations, err := h.Bookings.ListBookings(identity)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, toReservationResponse(&reservations[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	code := mux.Vars(r)["code"]
	res, err := h.Bookings.CancelBooking(code, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Booking %s cancelled by %s (%s)", code, identity.UserID, identity.Role)
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}
