package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
	"parkspot/internal/entities"
)

type SpotRepository struct {
	DB *sql.DB
}

func NewSpotRepository(database *sql.DB) *SpotRepository {
	return &SpotRepository{DB: database}
}

const spotColumns = `id, owner_id, name, address, price_per_hour, available_days,
		open_time, close_time, is_available, created_at, updated_at`

func scanSpot(row rowScanner) (*db.ParkingSpot, error) {
	var spot db.ParkingSpot
	err := row.Scan(
		&spot.ID, &spot.OwnerID, &spot.Name, &spot.Address, &spot.PricePerHour,
		pq.Array(&spot.AvailableDays), &spot.OpenTime, &spot.CloseTime,
		&spot.IsAvailable, &spot.CreatedAt, &spot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &spot, nil
}

func (r *SpotRepository) Get(id string) (*db.ParkingSpot, error) {
	row := r.DB.QueryRow(`SELECT `+spotColumns+` FROM parking_spots WHERE id = $1`, id)
	spot, err := scanSpot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying spot %s: %w", id, err)
	}
	return spot, nil
}

// Constraints returns the admission-relevant view of a spot.
func (r *SpotRepository) Constraints(spotID string) (*entities.SpotConstraints, error) {
	spot, err := r.Get(spotID)
	if err != nil {
		return nil, err
	}
	return &entities.SpotConstraints{
		SpotID:        spot.ID,
		OwnerID:       spot.OwnerID,
		PricePerHour:  spot.PricePerHour,
		AvailableDays: spot.AvailableDays,
		OpenTime:      spot.OpenTime,
		CloseTime:     spot.CloseTime,
		IsAvailable:   spot.IsAvailable,
	}, nil
}

func (r *SpotRepository) Create(spot *db.ParkingSpot) error {
	err := r.DB.QueryRow(`
		INSERT INTO parking_spots
		(id, owner_id, name, address, price_per_hour, available_days,
		 open_time, close_time, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`,
		spot.ID, spot.OwnerID, spot.Name, spot.Address, spot.PricePerHour,
		pq.Array(spot.AvailableDays), spot.OpenTime, spot.CloseTime, spot.IsAvailable,
	).Scan(&spot.CreatedAt, &spot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating spot: %w", err)
	}
	return nil
}

// SetAvailability toggles the maintenance flag.
func (r *SpotRepository) SetAvailability(id string, available bool) error {
	result, err := r.DB.Exec(`
		UPDATE parking_spots SET is_available = $2, updated_at = NOW() WHERE id = $1`,
		id, available)
	if err != nil {
		return fmt.Errorf("error updating spot availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SpotRepository) ListByOwner(ownerID string) ([]db.ParkingSpot, error) {
	rows, err := r.DB.Query(`
		SELECT `+spotColumns+` FROM parking_spots WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing spots for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var spots []db.ParkingSpot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning spot: %w", err)
		}
		spots = append(spots, *spot)
	}
	return spots, rows.Err()
}
