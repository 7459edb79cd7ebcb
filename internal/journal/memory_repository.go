package journal

import (
	"context"
	"errors"
	"sync"
)

const (
	// MemoryAttemptsPerSlot bounds the in-memory history of one slot.
	MemoryAttemptsPerSlot = 20
	// MemorySlots bounds how many slots the in-memory journal tracks; the
	// slot recorded first is forgotten first.
	MemorySlots = 1000
)

type memoryRepository struct {
	mu       sync.RWMutex
	perSlot  int
	maxSlots int
	attempts map[string][]Attempt
	order    []string
}

// NewMemoryRepository constructs a bounded in-memory journal for tests and
// local runs.
func NewMemoryRepository() Repository {
	return newMemoryRepository(MemoryAttemptsPerSlot, MemorySlots)
}

func newMemoryRepository(perSlot, maxSlots int) *memoryRepository {
	return &memoryRepository{perSlot: perSlot, maxSlots: maxSlots, attempts: make(map[string][]Attempt)}
}

func (r *memoryRepository) Record(_ context.Context, a Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history, seen := r.attempts[a.Slot]
	for _, existing := range history {
		if existing.ID == a.ID {
			return errors.New("attempt exists")
		}
	}
	if !seen {
		r.order = append(r.order, a.Slot)
		if len(r.order) > r.maxSlots {
			delete(r.attempts, r.order[0])
			r.order = r.order[1:]
		}
	}
	history = append(history, a)
	if len(history) > r.perSlot {
		history = append([]Attempt(nil), history[len(history)-r.perSlot:]...)
	}
	r.attempts[a.Slot] = history
	return nil
}

func (r *memoryRepository) ListBySlot(_ context.Context, slot string, limit int) ([]Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.attempts[slot]
	var out []Attempt
	for i := len(history) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, history[i])
	}
	return out, nil
}
