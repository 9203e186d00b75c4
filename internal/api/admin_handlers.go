package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"parkspot/internal/auth"
	"parkspot/internal/repository"
	"parkspot/internal/service"
)

type AdminHandler struct {
	Bookings *service.BookingService
	Repo     *repository.ReservationRepository
}

func NewAdminHandler(bookings *service.BookingService, repo *repository.ReservationRepository) *AdminHandler {
	return &AdminHandler{Bookings: bookings, Repo: repo}
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	spotID := r.URL.Query().Get("spot_id")
	status := r.URL.Query().Get("status")

	reservations, err := h.Repo.ListReservations(date, spotID, status)
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

// CancelReservation is the emergency override: admins may cancel from any
// holder state, including active.
func (h *AdminHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	res, err := h.Bookings.CancelByID(id, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}
