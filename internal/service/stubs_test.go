package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pv_informant/internal/models"
)

var errDown = errors.New("db down")

// readingRepoStub is an in-memory repository.ReadingRepo.
type readingRepoStub struct {
	readings  []models.Reading
	listErr   error
	latestErr error

	gotFrom, gotTo time.Time
	gotSince       time.Time
}

func (s *readingRepoStub) Append(_ context.Context, r models.Reading) error {
	s.readings = append(s.readings, r)
	return nil
}

func (s *readingRepoStub) List(_ context.Context, from, to time.Time) ([]models.Reading, error) {
	s.gotFrom, s.gotTo = from, to
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Reading
	for _, r := range s.readings {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *readingRepoStub) Latest(_ context.Context, since time.Time) (*models.Reading, error) {
	s.gotSince = since
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	var best *models.Reading
	for i := range s.readings {
		r := s.readings[i]
		if r.Timestamp.Before(since) {
			continue
		}
		if best == nil || !r.Timestamp.Before(best.Timestamp) {
			best = &r
		}
	}
	return best, nil
}

// activityRepoStub is an in-memory repository.ActivityRepo, safe for
// concurrent use.
type activityRepoStub struct {
	mu        sync.Mutex
	events    []models.ActivityEvent
	appendErr error
	listErr   error
}

func (s *activityRepoStub) Append(_ context.Context, e models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, e)
	return nil
}

func (s *activityRepoStub) List(_ context.Context, address string, from, to time.Time) ([]models.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.ActivityEvent
	for _, e := range s.events {
		if e.Address == address && !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *activityRepoStub) LastBefore(_ context.Context, address string, t time.Time) (*models.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.ActivityEvent
	for i := range s.events {
		e := s.events[i]
		if e.Address != address || e.Timestamp.After(t) {
			continue
		}
		if best == nil || !e.Timestamp.Before(best.Timestamp) {
			best = &e
		}
	}
	return best, nil
}

func (s *activityRepoStub) LastPerAddress(_ context.Context) (map[string]models.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.ActivityEvent)
	for _, e := range s.events {
		out[e.Address] = e
	}
	return out, nil
}

// workerStoreStub is a repository.WorkerRepo that records saves.
type workerStoreStub struct {
	mu      sync.Mutex
	saved   []models.Worker
	listed  []models.Worker
	saveErr error
	listErr error
}

func (s *workerStoreStub) Save(_ context.Context, w models.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, w)
	return nil
}

func (s *workerStoreStub) List(_ context.Context) ([]models.Worker, error) {
	return s.listed, s.listErr
}

// senderStub records wake signals; addresses in fail return that error.
type senderStub struct {
	mu   sync.Mutex
	sent []string
	fail map[string]error
}

func (s *senderStub) SendWake(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[address]; err != nil {
		return err
	}
	s.sent = append(s.sent, address)
	return nil
}

func (s *senderStub) sentTo() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// manualClock is a settable registry clock.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }
