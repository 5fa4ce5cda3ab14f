package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pv_informant/internal/interval"
	"pv_informant/internal/logger"
	"pv_informant/internal/models"
	"pv_informant/internal/repository"
)

// DefaultStaleAfter is how long a "working" report keeps a worker off the
// wake candidate list.
const DefaultStaleAfter = 10 * time.Minute

// ReportResult is returned to a reporting worker.
type ReportResult struct {
	// Woken is true when the worker was signalled in the most recent dispatch.
	Woken bool
}

// WorkerRegistry is the in-memory view of all registered workers, backed by a
// WorkerRepo for registrations and an ActivityRepo for reports.
//
// mu guards workers and woken and is never held across storage calls.
// writeMu serializes the read-clock/append/update sequence of mutations so
// the activity log of one address is appended in clock order. It is held
// across the storage write, so a slow write delays every Register and Report,
// not just those for the same address. Readers only take mu and are not
// affected.
type WorkerRegistry struct {
	mu      sync.RWMutex // snapshot lock, never held across I/O
	workers map[string]*models.Worker
	woken   map[string]struct{}

	writeMu sync.Mutex // ordering lock, held across storage I/O

	store    repository.WorkerRepo
	activity repository.ActivityRepo

	now        func() time.Time
	maxRange   time.Duration
	staleAfter time.Duration
	log        *logger.Logger
}

type RegistryOption func(*WorkerRegistry)

// WithClock replaces time.Now as the registry clock.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *WorkerRegistry) { r.now = now }
}

func WithMaxRange(d time.Duration) RegistryOption {
	return func(r *WorkerRegistry) { r.maxRange = d }
}

func WithStaleAfter(d time.Duration) RegistryOption {
	return func(r *WorkerRegistry) { r.staleAfter = d }
}

func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *WorkerRegistry) { r.log = l }
}

func NewWorkerRegistry(store repository.WorkerRepo, activity repository.ActivityRepo, opts ...RegistryOption) *WorkerRegistry {
	r := &WorkerRegistry{
		workers:    make(map[string]*models.Worker),
		woken:      make(map[string]struct{}),
		store:      store,
		activity:   activity,
		now:        time.Now,
		maxRange:   DefaultMaxRange,
		staleAfter: DefaultStaleAfter,
		log:        logger.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Restore rebuilds the in-memory state from storage: registrations from the
// worker store, last reports from the activity log.
func (r *WorkerRegistry) Restore(ctx context.Context) error {
	stored, err := r.store.List(ctx)
	if err != nil {
		return storageErr("list workers", err)
	}
	last, err := r.activity.LastPerAddress(ctx)
	if err != nil {
		return storageErr("load last reports", err)
	}

	workers := make(map[string]*models.Worker, len(stored))
	for _, w := range stored {
		if e, ok := last[w.Address]; ok {
			status, at := e.Status, e.Timestamp
			w.LastReportedStatus = &status
			w.LastReportTime = &at
		}
		workers[w.Address] = &w
	}

	r.mu.Lock()
	r.workers = workers
	r.mu.Unlock()

	r.log.Infow("registry_restored", "workers", len(workers))
	return nil
}

// Register adds the worker if it is not known yet. Registering twice returns
// the existing worker unchanged.
func (r *WorkerRegistry) Register(ctx context.Context, address string) (models.Worker, error) {
	addr, err := models.ParseAddress(address)
	if err != nil {
		return models.Worker{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if w, ok := r.Get(addr); ok {
		return w, nil
	}

	w := models.Worker{Address: addr, RegisteredAt: r.now().UTC()}
	if err := r.store.Save(ctx, w); err != nil {
		return models.Worker{}, storageErr("save worker", err)
	}

	r.mu.Lock()
	r.workers[addr] = &w
	r.mu.Unlock()

	r.log.Infow("worker_registered", "address", addr)
	return copyWorker(&w), nil
}

// Report records a status report of a registered worker at the registry
// clock's current time.
func (r *WorkerRegistry) Report(ctx context.Context, address string, status bool) (ReportResult, error) {
	addr, err := models.ParseAddress(address)
	if err != nil {
		return ReportResult{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, ok := r.Get(addr); !ok {
		return ReportResult{}, fmt.Errorf("%w: %s", models.ErrUnknownWorker, addr)
	}

	at := r.now().UTC()
	if err := r.activity.Append(ctx, models.ActivityEvent{Timestamp: at, Address: addr, Status: status}); err != nil {
		return ReportResult{}, storageErr("append activity", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.workers[addr]
	w.LastReportedStatus = &status
	w.LastReportTime = &at
	_, woken := r.woken[addr]
	return ReportResult{Woken: woken}, nil
}

// QueryActivityIntervals returns the working/not-working windows of a worker
// in the range. The state in force at From (the last report before it) opens
// the first window.
func (r *WorkerRegistry) QueryActivityIntervals(ctx context.Context, address string, p RangeParams) ([]interval.Interval[bool], error) {
	addr, err := models.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	p, err = normalizeAndValidateRange(p, r.maxRange)
	if err != nil {
		return nil, err
	}

	w, ok := r.Get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", models.ErrUnknownWorker, addr)
	}
	if w.LastReportTime == nil {
		return nil, fmt.Errorf("%w: %s has never reported", models.ErrUnknownWorker, addr)
	}

	seed, err := r.activity.LastBefore(ctx, addr, p.From)
	if err != nil {
		return nil, storageErr("load activity before range", err)
	}
	list, err := r.activity.List(ctx, addr, p.From, p.To)
	if err != nil {
		return nil, storageErr("list activity", err)
	}

	events := make([]interval.Event[bool], 0, len(list)+1)
	if seed != nil {
		events = append(events, interval.Event[bool]{At: p.From, Value: seed.Status})
	}
	for _, e := range list {
		events = append(events, interval.Event[bool]{At: e.Timestamp, Value: e.Status})
	}
	return interval.Collect(events, &p.To), nil
}

// Get returns a copy of the worker.
func (r *WorkerRegistry) Get(address string) (models.Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[address]
	if !ok {
		return models.Worker{}, false
	}
	return copyWorker(w), true
}

// Workers returns copies of all workers ordered by address.
func (r *WorkerRegistry) Workers() []models.Worker {
	r.mu.RLock()
	out := make([]models.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, copyWorker(w))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// WakeCandidates lists the workers that should be woken if there is surplus:
// those that never reported, last reported "not working", or whose last
// "working" report is older than the stale window.
func (r *WorkerRegistry) WakeCandidates(now time.Time) []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.workers))
	for addr, w := range r.workers {
		if w.LastReportedStatus == nil || !*w.LastReportedStatus {
			out = append(out, addr)
			continue
		}
		if w.LastReportTime == nil || now.Sub(*w.LastReportTime) > r.staleAfter {
			out = append(out, addr)
		}
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// MarkWoken stores the time a wake signal was sent to the worker. The
// in-memory state is updated even when persisting fails.
func (r *WorkerRegistry) MarkWoken(ctx context.Context, address string, at time.Time) error {
	at = at.UTC()

	r.mu.Lock()
	w, ok := r.workers[address]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrUnknownWorker, address)
	}
	w.LastWakeTime = &at
	snapshot := copyWorker(w)
	r.mu.Unlock()

	return storageErr("save wake time", r.store.Save(ctx, snapshot))
}

// RecordDispatch replaces the set of workers signalled by the latest dispatch.
func (r *WorkerRegistry) RecordDispatch(woken []string) {
	set := make(map[string]struct{}, len(woken))
	for _, a := range woken {
		set[a] = struct{}{}
	}
	r.mu.Lock()
	r.woken = set
	r.mu.Unlock()
}

func copyWorker(w *models.Worker) models.Worker {
	out := *w
	if w.LastWakeTime != nil {
		t := *w.LastWakeTime
		out.LastWakeTime = &t
	}
	if w.LastReportedStatus != nil {
		s := *w.LastReportedStatus
		out.LastReportedStatus = &s
	}
	if w.LastReportTime != nil {
		t := *w.LastReportTime
		out.LastReportTime = &t
	}
	return out
}
