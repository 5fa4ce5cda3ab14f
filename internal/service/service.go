package service

import (
	"context"
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/interval"
	"pv_informant/internal/logger"
	"pv_informant/internal/metrics"
	"pv_informant/internal/models"
	"pv_informant/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// PowerHistory answers surplus-power history queries.
type PowerHistory interface {
	QueryExcessIntervals(ctx context.Context, p RangeParams) ([]interval.Interval[decision.Verdict], error)
}

// Registry is the request-facing side of WorkerRegistry.
type Registry interface {
	Register(ctx context.Context, address string) (models.Worker, error)
	Report(ctx context.Context, address string, status bool) (ReportResult, error)
	QueryActivityIntervals(ctx context.Context, address string, p RangeParams) ([]interval.Interval[bool], error)
	Workers() []models.Worker
}

// Policy reads and atomically replaces the threshold policy.
type Policy interface {
	Load() decision.ThresholdPolicy
	Swap(p decision.ThresholdPolicy) (decision.ThresholdPolicy, error)
}

// Status exposes the scheduler's latest tick.
type Status interface {
	Snapshot() (TickSnapshot, bool)
	Subscribe() (<-chan TickSnapshot, func())
}

// Scheduler runs the background poll loop.
// Stop via context cancellation in main() for graceful shutdown.
type Scheduler interface {
	Run(ctx context.Context, every time.Duration)
}

type Service struct {
	PowerHistory
	Registry
	Policy
	Status
	Scheduler
	Authorization
}

// Settings carries the tunables from configuration.
type Settings struct {
	MaxRange   time.Duration
	StaleAfter time.Duration
	MinRepeat  time.Duration
	Freshness  time.Duration
	SigningKey string
	TokenTTL   time.Duration
}

// Deps are the collaborators that do not come from the repository layer.
type Deps struct {
	Policy   *decision.PolicyHolder
	Sender   WakeSender
	Metrics  *metrics.Metrics
	Log      *logger.Logger
	Settings Settings
}

// NewService wires the repository layer into concrete services. The returned
// registry still has to be restored from storage before serving.
func NewService(repos *repository.Repository, deps Deps) (*Service, *WorkerRegistry) {
	st := deps.Settings
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	registry := NewWorkerRegistry(repos.Workers, repos.Activity,
		WithMaxRange(st.MaxRange),
		WithStaleAfter(st.StaleAfter),
		WithLogger(log.Named("registry")),
	)
	dispatcher := NewWakeDispatcher(registry, deps.Sender, st.MinRepeat, log.Named("dispatcher"))
	scheduler := NewPollScheduler(repos.Readings, deps.Policy, registry, dispatcher, st.Freshness,
		log.Named("scheduler"), deps.Metrics)

	return &Service{
		PowerHistory:  NewPowerHistoryService(repos.Readings, deps.Policy, st.MaxRange),
		Registry:      registry,
		Policy:        deps.Policy,
		Status:        scheduler,
		Scheduler:     scheduler,
		Authorization: NewAuthService(repos.Auth, st.SigningKey, st.TokenTTL),
	}, registry
}
