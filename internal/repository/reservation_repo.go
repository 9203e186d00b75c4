package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
	"parkspot/internal/entities"
)

// Postgres error codes treated as booking conflicts: exclusion_violation
// from the no-overlap constraint and unique_violation on the booking code.
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

const reservationColumns = `id, code, spot_id, requester_id, owner_id, start_time, end_time,
		total_amount, status, payment_status, COALESCE(stripe_session_id, ''),
		user_email, user_phone, created_at, updated_at`

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(database *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: database}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*db.Reservation, error) {
	var res db.Reservation
	err := row.Scan(
		&res.ID, &res.Code, &res.SpotID, &res.RequesterID, &res.OwnerID,
		&res.StartTime, &res.EndTime, &res.TotalAmount, &res.Status,
		&res.PaymentStatus, &res.StripeSessionID,
		&res.UserEmail, &res.UserPhone, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FindActiveOverlapping returns every reservation holding the spot for an
// interval overlapping the argument, oldest first. Advisory only: callers
// must not treat an empty result as permission to write.
func (r *ReservationRepository) FindActiveOverlapping(spotID string, iv entities.TimeInterval) ([]db.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE spot_id = $1
		  AND status = ANY($2)
		  AND start_time < $3
		  AND end_time > $4
		ORDER BY created_at ASC`

	rows, err := r.DB.Query(query, spotID, pq.Array(db.HolderStatuses), iv.End, iv.Start)
	if err != nil {
		return nil, fmt.Errorf("error querying overlapping reservations: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating reservations: %w", err)
	}
	return reservations, nil
}

// Insert writes a new reservation, enforcing the no-overlap invariant
// atomically. A per-spot advisory transaction lock serializes concurrent
// inserts for the same spot so the in-transaction conflict re-check is
// race-free; the exclusion constraint in the schema backstops both. Either
// way the loser gets ErrSlotConflict.
func (r *ReservationRepository) Insert(res *db.Reservation) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting insert transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, res.SpotID); err != nil {
		return fmt.Errorf("error acquiring spot lock: %w", err)
	}

	var conflict bool
	err = tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE spot_id = $1
			  AND status = ANY($2)
			  AND start_time < $3
			  AND end_time > $4
		)`, res.SpotID, pq.Array(db.HolderStatuses), res.EndTime, res.StartTime).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("error checking for conflicts: %w", err)
	}
	if conflict {
		return apperrors.ErrSlotConflict
	}

	err = tx.QueryRow(`
		INSERT INTO reservations
		(id, code, spot_id, requester_id, owner_id, start_time, end_time,
		 total_amount, status, payment_status, user_email, user_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at`,
		res.ID, res.Code, res.SpotID, res.RequesterID, res.OwnerID,
		res.StartTime, res.EndTime, res.TotalAmount, res.Status,
		res.PaymentStatus, res.UserEmail, res.UserPhone,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && (string(pqErr.Code) == pgExclusionViolation || string(pqErr.Code) == pgUniqueViolation) {
			return apperrors.ErrSlotConflict
		}
		return fmt.Errorf("error inserting reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing reservation insert: %w", err)
	}
	return nil
}

// Transition is a compare-and-swap state update: it succeeds only if the
// stored state still equals from. On failure it distinguishes a missing
// reservation (ErrNotFound) from a concurrent change (ErrStaleState).
func (r *ReservationRepository) Transition(id, from, to string) (*db.Reservation, error) {
	row := r.DB.QueryRow(`
		UPDATE reservations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+reservationColumns, id, from, to)

	res, err := scanReservation(row)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error transitioning reservation %s: %w", id, err)
	}

	var current string
	err = r.DB.QueryRow(`SELECT status FROM reservations WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error checking reservation %s state: %w", id, err)
	}
	return nil, apperrors.ErrStaleState
}

func (r *ReservationRepository) Get(id string) (*db.Reservation, error) {
	row := r.DB.QueryRow(`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying reservation %s: %w", id, err)
	}
	return res, nil
}

func (r *ReservationRepository) GetByCode(code string) (*db.Reservation, error) {
	row := r.DB.QueryRow(`SELECT `+reservationColumns+` FROM reservations WHERE code = $1`, code)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying reservation by code %s: %w", code, err)
	}
	return res, nil
}

func (r *ReservationRepository) GetByStripeSessionID(sessionID string) (*db.Reservation, error) {
	row := r.DB.QueryRow(`SELECT `+reservationColumns+` FROM reservations WHERE stripe_session_id = $1`, sessionID)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying reservation by session %s: %w", sessionID, err)
	}
	return res, nil
}

// SetStripeSession records the checkout session created for a reservation.
func (r *ReservationRepository) SetStripeSession(id, sessionID string) error {
	_, err := r.DB.Exec(`
		UPDATE reservations SET stripe_session_id = $2, updated_at = NOW() WHERE id = $1`,
		id, sessionID)
	if err != nil {
		return fmt.Errorf("error storing stripe session for reservation %s: %w", id, err)
	}
	return nil
}

func (r *ReservationRepository) SetPaymentStatus(id, paymentStatus string) error {
	_, err := r.DB.Exec(`
		UPDATE reservations SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		id, paymentStatus)
	if err != nil {
		return fmt.Errorf("error updating payment status for reservation %s: %w", id, err)
	}
	return nil
}

// ListReservations returns reservations filtered for the admin listing.
// Any filter left empty is skipped.
func (r *ReservationRepository) ListReservations(date, spotID, status string) ([]db.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += " AND DATE(start_time) = $" + strconv.Itoa(idx)
		args = append(args, date)
		idx++
	}
	if spotID != "" {
		query += " AND spot_id = $" + strconv.Itoa(idx)
		args = append(args, spotID)
		idx++
	}
	if status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

// ListByRequester returns a user's own reservations, newest first.
func (r *ReservationRepository) ListByRequester(requesterID string) ([]db.Reservation, error) {
	rows, err := r.DB.Query(`
		SELECT `+reservationColumns+` FROM reservations
		WHERE requester_id = $1 ORDER BY start_time DESC`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("error listing reservations for %s: %w", requesterID, err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}
