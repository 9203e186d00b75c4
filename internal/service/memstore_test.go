package service

import (
	"sort"
	"sync"
	"time"

	"parkspot/internal/apperrors"
	"parkspot/internal/db"
	"parkspot/internal/entities"
)

// memStore is a mutex-guarded ReservationStore with the same observable
// semantics as the Postgres implementation: insert is atomic with its
// conflict check, transition is a compare-and-swap.
type memStore struct {
	mu   sync.Mutex
	byID map[string]*db.Reservation
	seq  map[string]int
	next int
}

func newMemStore() *memStore {
	return &memStore{
		byID: make(map[string]*db.Reservation),
		seq:  make(map[string]int),
	}
}

func isHolder(status string) bool {
	for _, s := range db.HolderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (m *memStore) Insert(res *db.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	iv := entities.TimeInterval{Start: res.StartTime, End: res.EndTime}
	for _, existing := range m.byID {
		if existing.SpotID != res.SpotID || !isHolder(existing.Status) {
			continue
		}
		if iv.Overlaps(entities.TimeInterval{Start: existing.StartTime, End: existing.EndTime}) {
			return apperrors.ErrSlotConflict
		}
	}

	stored := *res
	m.byID[res.ID] = &stored
	m.seq[res.ID] = m.next
	m.next++
	return nil
}

func (m *memStore) FindActiveOverlapping(spotID string, iv entities.TimeInterval) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []db.Reservation
	for _, res := range m.byID {
		if res.SpotID != spotID || !isHolder(res.Status) {
			continue
		}
		if iv.Overlaps(entities.TimeInterval{Start: res.StartTime, End: res.EndTime}) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return m.seq[out[i].ID] < m.seq[out[j].ID]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) Transition(id, from, to string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if res.Status != from {
		return nil, apperrors.ErrStaleState
	}
	res.Status = to
	res.UpdatedAt = time.Now().UTC()
	out := *res
	return &out, nil
}

func (m *memStore) Get(id string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *res
	return &out, nil
}

func (m *memStore) GetByCode(code string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, res := range m.byID {
		if res.Code == code {
			out := *res
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// all returns a snapshot of every stored reservation.
func (m *memStore) all() []db.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]db.Reservation, 0, len(m.byID))
	for _, res := range m.byID {
		out = append(out, *res)
	}
	return out
}

// fakeCatalog is a static SpotCatalog.
type fakeCatalog struct {
	spots map[string]*entities.SpotConstraints
}

func (f *fakeCatalog) Constraints(spotID string) (*entities.SpotConstraints, error) {
	c, ok := f.spots[spotID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *c
	return &out, nil
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
