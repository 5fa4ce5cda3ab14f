package models

import (
	"math"
	"time"
)

// Reading is a single PV controller sample as stored in pv_readings.
type Reading struct {
	Timestamp      time.Time `json:"timestamp"`
	BatteryVoltage float64   `json:"battery_voltage"` // V
	PVVoltage      float64   `json:"pv_voltage"`      // V
	PVCurrent      float64   `json:"pv_current"`      // A
	Temperature    float64   `json:"temperature"`     // °C
}

// Timestamps are stored as unix nanoseconds, which cover 1677-09-21 to
// 2262-04-11.
var (
	MinStorableTime = time.Unix(0, math.MinInt64).UTC()
	MaxStorableTime = time.Unix(0, math.MaxInt64).UTC()
)

// Storable reports whether t fits the unix-nanosecond timestamp columns.
func Storable(t time.Time) bool {
	return !t.Before(MinStorableTime) && !t.After(MaxStorableTime)
}

// Valid reports whether r can be stored. Readings are checked once at ingestion so
// consumers never have to deal with NaN or missing timestamps.
func (r Reading) Valid() bool {
	if r.Timestamp.IsZero() || !Storable(r.Timestamp) {
		return false
	}
	for _, v := range []float64{r.BatteryVoltage, r.PVVoltage, r.PVCurrent, r.Temperature} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
