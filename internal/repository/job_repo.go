package repository

import (
	"database/sql"
	"fmt"
	"time"

	"parkspot/internal/db"
)

// JobRepository serves the time-driven sweeps: it only finds reservations
// that are due for a transition. The transitions themselves go through the
// reservation store's compare-and-swap so a concurrent webhook or
// cancellation can never be overwritten.
type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

func (r *JobRepository) idsWhere(clause string, args ...interface{}) ([]string, error) {
	rows, err := r.DB.Query(`SELECT id FROM reservations WHERE `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying due reservations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PendingPaymentOlderThan returns pending_payment reservations created
// before the cutoff, i.e. whose payment wait window has elapsed.
func (r *JobRepository) PendingPaymentOlderThan(cutoff time.Time) ([]string, error) {
	return r.idsWhere(`status = $1 AND created_at < $2`, db.StatusPendingPayment, cutoff)
}

// ConfirmedDueToStart returns confirmed reservations whose interval has begun.
func (r *JobRepository) ConfirmedDueToStart(now time.Time) ([]string, error) {
	return r.idsWhere(`status = $1 AND start_time <= $2`, db.StatusConfirmed, now)
}

// ActivePastEnd returns active reservations whose interval has ended.
func (r *JobRepository) ActivePastEnd(now time.Time) ([]string, error) {
	return r.idsWhere(`status = $1 AND end_time <= $2`, db.StatusActive, now)
}
