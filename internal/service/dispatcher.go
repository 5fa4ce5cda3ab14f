package service

import (
	"context"
	"fmt"
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/logger"
	"pv_informant/internal/models"
)

// DefaultMinRepeat is the wake cooldown per worker.
const DefaultMinRepeat = 10 * time.Minute

// WakeSender delivers a wake signal to one hardware address.
type WakeSender interface {
	SendWake(ctx context.Context, address string) error
}

// wakeRegistry is the part of WorkerRegistry the dispatcher needs.
type wakeRegistry interface {
	Get(address string) (models.Worker, bool)
	MarkWoken(ctx context.Context, address string, at time.Time) error
	RecordDispatch(woken []string)
}

// DispatchResult is the outcome of one dispatch.
type DispatchResult struct {
	Succeeded []string
	Failed    map[string]error
	// Skipped holds candidates still inside their cooldown.
	Skipped []string
}

type WakeDispatcher struct {
	registry  wakeRegistry
	sender    WakeSender
	minRepeat time.Duration
	log       *logger.Logger
}

func NewWakeDispatcher(registry wakeRegistry, sender WakeSender, minRepeat time.Duration, log *logger.Logger) *WakeDispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &WakeDispatcher{registry: registry, sender: sender, minRepeat: minRepeat, log: log}
}

// OnTick signals every candidate when verdict is Yes, skipping workers woken
// less than minRepeat ago. A failure for one address does not stop the
// others. The set of signalled workers replaces the previous one in the
// registry on every call, so a non-Yes tick clears it.
func (d *WakeDispatcher) OnTick(ctx context.Context, verdict decision.Verdict, candidates []string, now time.Time) DispatchResult {
	res := DispatchResult{Failed: map[string]error{}}
	defer func() { d.registry.RecordDispatch(res.Succeeded) }()

	if verdict != decision.Yes {
		return res
	}

	for _, addr := range candidates {
		if w, ok := d.registry.Get(addr); ok && w.LastWakeTime != nil && now.Sub(*w.LastWakeTime) < d.minRepeat {
			res.Skipped = append(res.Skipped, addr)
			continue
		}
		if err := d.sender.SendWake(ctx, addr); err != nil {
			res.Failed[addr] = fmt.Errorf("%w: %s: %w", models.ErrWakeSignal, addr, err)
			d.log.Warnw("wake_failed", "address", addr, "error", err)
			continue
		}
		res.Succeeded = append(res.Succeeded, addr)
		d.log.Infow("wake_sent", "address", addr)
		if err := d.registry.MarkWoken(ctx, addr, now); err != nil {
			d.log.Errorw("wake_time_not_saved", "address", addr, "error", err)
		}
	}
	return res
}
