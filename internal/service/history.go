package service

import (
	"context"
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/interval"
	"pv_informant/internal/repository"
)

// PowerHistoryService answers "when was there surplus power" over stored readings.
type PowerHistoryService struct {
	readings repository.ReadingRepo
	policy   *decision.PolicyHolder
	maxRange time.Duration
}

func NewPowerHistoryService(readings repository.ReadingRepo, policy *decision.PolicyHolder, maxRange time.Duration) *PowerHistoryService {
	return &PowerHistoryService{readings: readings, policy: policy, maxRange: maxRange}
}

// QueryExcessIntervals classifies every reading in the window with the
// current policy and coalesces the verdicts. The last interval ends at To.
func (s *PowerHistoryService) QueryExcessIntervals(ctx context.Context, p RangeParams) ([]interval.Interval[decision.Verdict], error) {
	p, err := normalizeAndValidateRange(p, s.maxRange)
	if err != nil {
		return nil, err
	}

	readings, err := s.readings.List(ctx, p.From, p.To)
	if err != nil {
		return nil, storageErr("list readings", err)
	}

	policy := s.policy.Load()
	events := make([]interval.Event[decision.Verdict], 0, len(readings))
	for _, r := range readings {
		events = append(events, interval.Event[decision.Verdict]{At: r.Timestamp, Value: decision.Decide(r, policy)})
	}
	return interval.Collect(events, &p.To), nil
}
