package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"pv_informant/internal/models"
	"pv_informant/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD between 1678 and 2262"
	errToInvalid   = "invalid 'to' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD between 1678 and 2262"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	// defaultWindow applies when 'from' is omitted.
	defaultWindow = 24 * time.Hour
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			if !models.Storable(t) {
				return time.Time{}, fmt.Errorf("time %q is outside the supported range %s to %s",
					s, models.MinStorableTime.Format(time.RFC3339), models.MaxStorableTime.Format(time.RFC3339))
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}

// parseRange reads ?from=&to=. A missing 'to' means now, a missing 'from'
// means one day before 'to', and a date-only 'to' covers that whole day.
// Writes a 400 and returns false on malformed input; range checks are left
// to the service.
func (h *Handler) parseRange(c *gin.Context) (service.RangeParams, bool) {
	var (
		p   service.RangeParams
		err error
	)
	if qs := c.Query("to"); qs != "" {
		p.To, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return service.RangeParams{}, false
		}
		if isDateOnly(qs) {
			p.To = p.To.Add(24*time.Hour - time.Nanosecond)
		}
	} else {
		p.To = h.now().UTC()
	}

	if qs := c.Query("from"); qs != "" {
		p.From, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return service.RangeParams{}, false
		}
	} else {
		p.From = p.To.Add(-defaultWindow)
	}
	return p, true
}
