package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/interval"
	"pv_informant/internal/models"
)

func testPolicy(t *testing.T) *decision.PolicyHolder {
	t.Helper()
	p, err := decision.NewThresholdPolicy(12.0, 13.2, 0.5, 2.0)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return decision.NewPolicyHolder(p)
}

func reading(sec int, battery, current float64) models.Reading {
	return models.Reading{Timestamp: at(sec), BatteryVoltage: battery, PVCurrent: current}
}

func TestQueryExcessIntervals_CoalescesVerdicts(t *testing.T) {
	repo := &readingRepoStub{readings: []models.Reading{
		reading(0, 11.5, 2.1),  // No
		reading(10, 11.8, 3.0), // No
		reading(20, 12.8, 1.0), // Maybe
		reading(30, 13.5, 2.1), // Yes
		reading(40, 13.6, 2.5), // Yes
	}}
	svc := NewPowerHistoryService(repo, testPolicy(t), DefaultMaxRange)

	got, err := svc.QueryExcessIntervals(context.Background(), RangeParams{From: at(0), To: at(60)})
	if err != nil {
		t.Fatalf("QueryExcessIntervals: %v", err)
	}
	want := []interval.Interval[decision.Verdict]{
		{Start: at(0), End: at(20), Value: decision.No},
		{Start: at(20), End: at(30), Value: decision.Maybe},
		{Start: at(30), End: at(60), Value: decision.Yes},
	}
	if len(got) != len(want) {
		t.Fatalf("want %d intervals, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) || got[i].Value != want[i].Value {
			t.Fatalf("interval %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestQueryExcessIntervals_UsesCurrentPolicy(t *testing.T) {
	repo := &readingRepoStub{readings: []models.Reading{reading(0, 12.8, 1.0)}}
	policy := testPolicy(t)
	svc := NewPowerHistoryService(repo, policy, DefaultMaxRange)

	got, err := svc.QueryExcessIntervals(context.Background(), RangeParams{From: at(0), To: at(10)})
	if err != nil || len(got) != 1 || got[0].Value != decision.Maybe {
		t.Fatalf("expected Maybe, got %+v, %v", got, err)
	}

	if _, err := policy.Swap(decision.ThresholdPolicy{BatteryLow: 12, BatteryHigh: 12.5, CurrentLow: 0.5, CurrentHigh: 1}); err != nil {
		t.Fatalf("swap: %v", err)
	}
	got, err = svc.QueryExcessIntervals(context.Background(), RangeParams{From: at(0), To: at(10)})
	if err != nil || len(got) != 1 || got[0].Value != decision.Yes {
		t.Fatalf("expected Yes after swap, got %+v, %v", got, err)
	}
}

func TestQueryExcessIntervals_NoReadings(t *testing.T) {
	svc := NewPowerHistoryService(&readingRepoStub{}, testPolicy(t), DefaultMaxRange)

	got, err := svc.QueryExcessIntervals(context.Background(), RangeParams{From: at(0), To: at(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestQueryExcessIntervals_Errors(t *testing.T) {
	tests := []struct {
		name    string
		repo    *readingRepoStub
		params  RangeParams
		wantErr error
	}{
		{
			name:    "from after to",
			repo:    &readingRepoStub{},
			params:  RangeParams{From: at(10), To: at(0)},
			wantErr: models.ErrInvalidRange,
		},
		{
			name:    "range too long",
			repo:    &readingRepoStub{},
			params:  RangeParams{From: t0, To: t0.Add(21 * 24 * time.Hour)},
			wantErr: models.ErrInvalidRange,
		},
		{
			name:    "storage failure",
			repo:    &readingRepoStub{listErr: errDown},
			params:  RangeParams{From: at(0), To: at(10)},
			wantErr: models.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPowerHistoryService(tt.repo, testPolicy(t), DefaultMaxRange)
			_, err := svc.QueryExcessIntervals(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestQueryExcessIntervals_PassesUTCRangeToRepo(t *testing.T) {
	repo := &readingRepoStub{}
	svc := NewPowerHistoryService(repo, testPolicy(t), DefaultMaxRange)
	loc := time.FixedZone("CEST", 2*3600)

	_, err := svc.QueryExcessIntervals(context.Background(), RangeParams{From: at(0).In(loc), To: at(10).In(loc)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.gotFrom.Location() != time.UTC || !repo.gotFrom.Equal(at(0)) || !repo.gotTo.Equal(at(10)) {
		t.Fatalf("unexpected repo range: %v - %v", repo.gotFrom, repo.gotTo)
	}
}
