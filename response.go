package pv_informant

import (
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/interval"
)

// ExcessInterval is one window of GET /pv.
type ExcessInterval struct {
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Decision decision.Verdict `json:"decision" swaggertype:"string" enums:"No,Maybe,Yes"`
}

// ActivityInterval is one window of GET /worker/{address}.
type ActivityInterval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status bool      `json:"status"`
}

// ReportRequest is the body of POST /worker/{address}/report.
type ReportRequest struct {
	Status *bool `json:"status" binding:"required"`
}

// ReportResponse tells a worker whether it was woken by the latest dispatch.
type ReportResponse struct {
	Woken bool `json:"woken"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewExcessIntervals(in []interval.Interval[decision.Verdict]) []ExcessInterval {
	out := make([]ExcessInterval, 0, len(in))
	for _, iv := range in {
		out = append(out, ExcessInterval{Start: iv.Start, End: iv.End, Decision: iv.Value})
	}
	return out
}

func (e ExcessInterval) Interval() interval.Interval[decision.Verdict] {
	return interval.Interval[decision.Verdict]{Start: e.Start, End: e.End, Value: e.Decision}
}

func NewActivityIntervals(in []interval.Interval[bool]) []ActivityInterval {
	out := make([]ActivityInterval, 0, len(in))
	for _, iv := range in {
		out = append(out, ActivityInterval{Start: iv.Start, End: iv.End, Status: iv.Value})
	}
	return out
}

func (a ActivityInterval) Interval() interval.Interval[bool] {
	return interval.Interval[bool]{Start: a.Start, End: a.End, Value: a.Status}
}
