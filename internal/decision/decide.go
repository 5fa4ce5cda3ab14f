package decision

import "pv_informant/internal/models"

// Decide maps one reading to a verdict.
//
// Yes needs battery >= BatteryHigh and current >= CurrentHigh. No is returned
// as soon as battery < BatteryLow or current < CurrentLow. Everything in
// between is Maybe, so a value oscillating around a single cutoff moves
// Yes <-> Maybe or Maybe <-> No, never Yes <-> No.
func Decide(r models.Reading, p ThresholdPolicy) Verdict {
	if r.BatteryVoltage >= p.BatteryHigh && r.PVCurrent >= p.CurrentHigh {
		return Yes
	}
	if r.BatteryVoltage < p.BatteryLow || r.PVCurrent < p.CurrentLow {
		return No
	}
	return Maybe
}
