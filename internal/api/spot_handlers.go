package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"parkspot/internal/auth"
	"parkspot/internal/db"
	"parkspot/internal/repository"
)

type SpotHandler struct {
	Repo *repository.SpotRepository
}

func NewSpotHandler(repo *repository.SpotRepository) *SpotHandler {
	return &SpotHandler{Repo: repo}
}

// GetSpot exposes the catalog view the admission controller checks against.
func (h *SpotHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	constraints, err := h.Repo.Constraints(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, constraints)
}

func (h *SpotHandler) CreateSpot(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateSpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.PricePerHour <= 0 {
		http.Error(w, "name and a positive price_per_hour are required", http.StatusBadRequest)
		return
	}
	if len(req.AvailableDays) == 0 {
		req.AvailableDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	}
	if req.OpenTime == "" {
		req.OpenTime = "00:00"
	}
	if req.CloseTime == "" {
		req.CloseTime = "24:00"
	}

	spot := &db.ParkingSpot{
		ID:            uuid.NewString(),
		OwnerID:       identity.UserID,
		Name:          req.Name,
		Address:       req.Address,
		PricePerHour:  req.PricePerHour,
		AvailableDays: req.AvailableDays,
		OpenTime:      req.OpenTime,
		CloseTime:     req.CloseTime,
		IsAvailable:   true,
	}
	if err := h.Repo.Create(spot); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, spot)
}

func (h *SpotHandler) ListMySpots(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	spots, err := h.Repo.ListByOwner(identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spots)
}

// SetAvailability flips the maintenance flag. Only the spot's owner or an
// admin may do this.
func (h *SpotHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	spot, err := h.Repo.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if identity.Role != auth.RoleAdmin && identity.UserID != spot.OwnerID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Repo.SetAvailability(id, req.IsAvailable); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Spot availability updated"})
}
