package repository

import (
	"context"
	"sort"
	"sync"

	"pv_informant/internal/models"
)

// MemoryWorkers keeps registrations in process memory only; they are lost on
// restart. Selected with storage.workers: memory.
type MemoryWorkers struct {
	mu      sync.Mutex
	workers map[string]models.Worker
}

func NewMemoryWorkers() *MemoryWorkers {
	return &MemoryWorkers{workers: make(map[string]models.Worker)}
}

var _ WorkerRepo = (*MemoryWorkers)(nil)

func (m *MemoryWorkers) Save(_ context.Context, w models.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.workers[w.Address]; ok {
		w.RegisteredAt = prev.RegisteredAt
	}
	if w.LastWakeTime != nil {
		t := *w.LastWakeTime
		w.LastWakeTime = &t
	}
	m.workers[w.Address] = models.Worker{
		Address:      w.Address,
		RegisteredAt: w.RegisteredAt,
		LastWakeTime: w.LastWakeTime,
	}
	return nil
}

func (m *MemoryWorkers) List(_ context.Context) ([]models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}
