package service

import (
	"context"
	"sync"
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/logger"
	"pv_informant/internal/metrics"
	"pv_informant/internal/models"
	"pv_informant/internal/repository"
)

// DefaultFreshness is how old the latest reading may be before the tick
// treats the data as missing.
const DefaultFreshness = 30 * time.Minute

// TickSnapshot is the outcome of one scheduler tick.
type TickSnapshot struct {
	At         time.Time         `json:"at"`
	Verdict    decision.Verdict  `json:"verdict"`
	Reading    *models.Reading   `json:"reading,omitempty"`
	Candidates []string          `json:"candidates"`
	Woken      []string          `json:"woken"`
	Skipped    []string          `json:"skipped,omitempty"`
	Failed     map[string]string `json:"failed,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type candidateSource interface {
	WakeCandidates(now time.Time) []string
}

type dispatcher interface {
	OnTick(ctx context.Context, verdict decision.Verdict, candidates []string, now time.Time) DispatchResult
}

// PollScheduler periodically decides on the newest reading and hands the
// verdict to the dispatcher.
type PollScheduler struct {
	readings   repository.ReadingRepo
	policy     *decision.PolicyHolder
	candidates candidateSource
	dispatcher dispatcher
	freshness  time.Duration
	now        func() time.Time
	log        *logger.Logger
	metrics    *metrics.Metrics

	mu   sync.RWMutex
	last *TickSnapshot
	subs map[chan TickSnapshot]struct{}
}

func NewPollScheduler(
	readings repository.ReadingRepo,
	policy *decision.PolicyHolder,
	candidates candidateSource,
	d dispatcher,
	freshness time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *PollScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &PollScheduler{
		readings:   readings,
		policy:     policy,
		candidates: candidates,
		dispatcher: d,
		freshness:  freshness,
		now:        time.Now,
		log:        log,
		metrics:    m,
		subs:       make(map[chan TickSnapshot]struct{}),
	}
}

// Run ticks once immediately and then at the given interval until ctx is
// canceled. A failed tick is logged and the loop carries on.
func (s *PollScheduler) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	s.log.Infow("scheduler_started", "interval", every.String())
	_, _ = s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("scheduler_stopped")
			return
		case <-t.C:
			_, _ = s.Tick(ctx)
		}
	}
}

// Tick runs one decide/dispatch cycle. A reading older than the freshness
// window counts as missing and yields No.
func (s *PollScheduler) Tick(ctx context.Context) (TickSnapshot, error) {
	now := s.now().UTC()
	snap := TickSnapshot{At: now, Verdict: decision.No, Candidates: []string{}, Woken: []string{}}

	reading, err := s.readings.Latest(ctx, now.Add(-s.freshness))
	if err != nil {
		err = storageErr("latest reading", err)
		snap.Error = err.Error()
		s.metrics.TickFailed()
		s.log.Errorw("tick_failed", "error", err)
		s.publish(snap)
		return snap, err
	}

	if reading != nil {
		snap.Reading = reading
		snap.Verdict = decision.Decide(*reading, s.policy.Load())
	} else {
		s.log.Warnw("no_recent_reading", "freshness", s.freshness.String())
	}

	snap.Candidates = s.candidates.WakeCandidates(now)
	res := s.dispatcher.OnTick(ctx, snap.Verdict, snap.Candidates, now)
	if res.Succeeded != nil {
		snap.Woken = res.Succeeded
	}
	snap.Skipped = res.Skipped
	if len(res.Failed) > 0 {
		snap.Failed = make(map[string]string, len(res.Failed))
		for addr, e := range res.Failed {
			snap.Failed[addr] = e.Error()
		}
	}

	s.metrics.Tick(snap.Verdict.String(), int(snap.Verdict))
	s.metrics.Wakes(len(res.Succeeded), len(res.Failed), len(res.Skipped))
	s.log.Infow("tick_done",
		"verdict", snap.Verdict.String(),
		"candidates", len(snap.Candidates),
		"woken", len(snap.Woken),
		"failed", len(res.Failed),
	)
	s.publish(snap)
	return snap, nil
}

// Snapshot returns the last tick outcome, if any tick has run.
func (s *PollScheduler) Snapshot() (TickSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return TickSnapshot{}, false
	}
	return *s.last, true
}

// Subscribe returns a channel that receives every following snapshot and a
// function that ends the subscription. Slow subscribers miss snapshots
// instead of blocking the scheduler.
func (s *PollScheduler) Subscribe() (<-chan TickSnapshot, func()) {
	ch := make(chan TickSnapshot, 4)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *PollScheduler) publish(snap TickSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &snap
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
