package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
	"parkspot/internal/repository"
)

// JobService runs the periodic lifecycle sweeps. It is triggered from the
// outside (cron in cmd/server); the core never schedules itself.
type JobService struct {
	repo      *repository.JobRepository
	lifecycle *LifecycleService
	clock     Clock
}

func NewJobService(repo *repository.JobRepository, lifecycle *LifecycleService, clock Clock) *JobService {
	return &JobService{repo: repo, lifecycle: lifecycle, clock: clock}
}

// applyAll attempts one CAS transition per due reservation. A StaleState
// loss means a webhook or cancellation got there first; that is expected and
// only logged.
func (s *JobService) applyAll(ids []string, from, to string) int {
	applied := 0
	for _, id := range ids {
		if _, err := s.lifecycle.Transition(id, from, to); err != nil {
			if errors.Is(err, apperrors.ErrStaleState) || errors.Is(err, apperrors.ErrNotFound) {
				log.Printf("Sweep: reservation %s no longer %s, skipping", id, from)
				continue
			}
			log.Printf("Sweep: failed to move reservation %s to %s: %v", id, to, err)
			continue
		}
		applied++
	}
	return applied
}

// ExpireStalePending releases slots held by unpaid reservations whose
// payment wait window has elapsed.
func (s *JobService) ExpireStalePending() error {
	cutoff := s.clock.Now().Add(-s.lifecycle.Policy().PendingPaymentTTL)
	ids, err := s.repo.PendingPaymentOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("sweep: failed to find stale pending reservations: %w", err)
	}
	if n := s.applyAll(ids, db.StatusPendingPayment, db.StatusExpired); n > 0 {
		log.Printf("Sweep: expired %d stale pending reservations", n)
	}
	return nil
}

// ActivateDue moves confirmed reservations whose interval has started.
func (s *JobService) ActivateDue() error {
	ids, err := s.repo.ConfirmedDueToStart(s.clock.Now())
	if err != nil {
		return fmt.Errorf("sweep: failed to find due confirmed reservations: %w", err)
	}
	if n := s.applyAll(ids, db.StatusConfirmed, db.StatusActive); n > 0 {
		log.Printf("Sweep: activated %d reservations", n)
	}
	return nil
}

// CompleteElapsed closes out active reservations whose interval has ended.
func (s *JobService) CompleteElapsed() error {
	ids, err := s.repo.ActivePastEnd(s.clock.Now())
	if err != nil {
		return fmt.Errorf("sweep: failed to find elapsed active reservations: %w", err)
	}
	if n := s.applyAll(ids, db.StatusActive, db.StatusCompleted); n > 0 {
		log.Printf("Sweep: completed %d reservations", n)
	}
	return nil
}

// RunSweep executes all three time-driven checks. Each is independent; one
// failing does not stop the others.
func (s *JobService) RunSweep() {
	start := time.Now()
	for _, job := range []func() error{s.ExpireStalePending, s.ActivateDue, s.CompleteElapsed} {
		if err := job(); err != nil {
			log.Printf("Cron: %v", err)
		}
	}
	log.Printf("Cron: lifecycle sweep finished in %s", time.Since(start).Round(time.Millisecond))
}
