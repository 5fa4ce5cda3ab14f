package decision

import (
	"fmt"
	"sync/atomic"

	"pv_informant/internal/models"
)

// ThresholdPolicy holds the two cutoffs per signal. Construct it with
// NewThresholdPolicy; the zero value is a valid but useless policy.
type ThresholdPolicy struct {
	BatteryLow  float64 `json:"battery_low" mapstructure:"battery_low"`
	BatteryHigh float64 `json:"battery_high" mapstructure:"battery_high"`
	CurrentLow  float64 `json:"current_low" mapstructure:"current_low"`
	CurrentHigh float64 `json:"current_high" mapstructure:"current_high"`
}

// NewThresholdPolicy validates low <= high for both signals.
func NewThresholdPolicy(batteryLow, batteryHigh, currentLow, currentHigh float64) (ThresholdPolicy, error) {
	p := ThresholdPolicy{
		BatteryLow:  batteryLow,
		BatteryHigh: batteryHigh,
		CurrentLow:  currentLow,
		CurrentHigh: currentHigh,
	}
	if err := p.Validate(); err != nil {
		return ThresholdPolicy{}, err
	}
	return p, nil
}

// Validate returns an error wrapping models.ErrConfig when a low cutoff exceeds
// its high cutoff. NaN cutoffs are rejected as well.
func (p ThresholdPolicy) Validate() error {
	if !(p.BatteryLow <= p.BatteryHigh) {
		return fmt.Errorf("%w: battery_low %.2f must be <= battery_high %.2f", models.ErrConfig, p.BatteryLow, p.BatteryHigh)
	}
	if !(p.CurrentLow <= p.CurrentHigh) {
		return fmt.Errorf("%w: current_low %.2f must be <= current_high %.2f", models.ErrConfig, p.CurrentLow, p.CurrentHigh)
	}
	return nil
}

// PolicyHolder shares the active policy between the scheduler and request
// handlers. Readers always see a whole policy, never a half-updated one.
type PolicyHolder struct {
	p atomic.Pointer[ThresholdPolicy]
}

func NewPolicyHolder(p ThresholdPolicy) *PolicyHolder {
	h := &PolicyHolder{}
	h.p.Store(&p)
	return h
}

// Load returns a copy of the active policy.
func (h *PolicyHolder) Load() ThresholdPolicy {
	return *h.p.Load()
}

// Swap validates and installs p, returning the previous policy.
func (h *PolicyHolder) Swap(p ThresholdPolicy) (ThresholdPolicy, error) {
	if err := p.Validate(); err != nil {
		return ThresholdPolicy{}, err
	}
	return *h.p.Swap(&p), nil
}
