// Package interval turns a stream of timestamped samples into the minimal list
// of constant-value time windows. It is shared by the PV history and the worker
// activity queries.
package interval

import (
	"iter"
	"slices"
	"time"
)

// Event is a value observed at a point in time.
type Event[V comparable] struct {
	At    time.Time
	Value V
}

// Interval is the half-open window [Start, End) during which Value held.
type Interval[V comparable] struct {
	Start time.Time
	End   time.Time
	Value V
}

// Coalesce returns the intervals of constant value described by events, which
// must be ordered by time (equal timestamps keep arrival order, the later one
// wins).
//
// With a bound, the last interval ends at *bound and every interval satisfies
// Start < End; events at or after the bound are ignored.
// Without a bound the last interval ends at the last event's timestamp, so a
// trailing run that started at that timestamp is reported as [t, t].
//
// Two adjacent intervals never carry the same value. The returned sequence
// reads events lazily and can be ranged over any number of times.
func Coalesce[V comparable](events []Event[V], bound *time.Time) iter.Seq[Interval[V]] {
	return func(yield func(Interval[V]) bool) {
		var (
			cur  Interval[V]
			open bool
		)
		for i, ev := range events {
			if i+1 < len(events) && events[i+1].At.Equal(ev.At) {
				// same timestamp: only the last sample of the group counts
				continue
			}
			if bound != nil && !ev.At.Before(*bound) {
				break
			}
			if !open {
				cur = Interval[V]{Start: ev.At, Value: ev.Value}
				open = true
				continue
			}
			if ev.Value == cur.Value {
				continue
			}
			cur.End = ev.At
			if !yield(cur) {
				return
			}
			cur = Interval[V]{Start: ev.At, Value: ev.Value}
		}
		if !open {
			return
		}
		if bound != nil {
			cur.End = *bound
		} else {
			cur.End = events[len(events)-1].At
		}
		yield(cur)
	}
}

// Collect is Coalesce materialized into a slice. It never returns nil.
func Collect[V comparable](events []Event[V], bound *time.Time) []Interval[V] {
	out := slices.Collect(Coalesce(events, bound))
	if out == nil {
		out = []Interval[V]{}
	}
	return out
}
