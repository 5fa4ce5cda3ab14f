package handlers

import (
	"net/http"

	pvi "pv_informant"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Surplus power history
// @Description  Coalesced No/Maybe/Yes windows over stored readings. Times accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' covers the whole day. Defaults to the last 24 hours. At most 20 days.
// @Tags         pv
// @Produce      json
// @Param        from  query     string  false  "Start of range"  example(2025-08-01)
// @Param        to    query     string  false  "End of range"    example(2025-08-02)
// @Success      200   {array}   pv_informant.ExcessInterval
// @Failure      400   {object}  pv_informant.ErrorResponse
// @Failure      503   {object}  pv_informant.ErrorResponse
// @Router       /pv [get]
func (h *Handler) getExcess(c *gin.Context) {
	p, ok := h.parseRange(c)
	if !ok {
		return
	}
	intervals, err := h.services.PowerHistory.QueryExcessIntervals(c.Request.Context(), p)
	if err != nil {
		h.logAndJSONError(c, statusFor(err, http.StatusNotFound), "pv_query_failed", err, "from", p.From, "to", p.To)
		return
	}
	c.JSON(http.StatusOK, pvi.NewExcessIntervals(intervals))
}

// @Summary      Last scheduler tick
// @Description  Verdict, reading and dispatch outcome of the most recent poll.
// @Tags         pv
// @Produce      json
// @Success      200  {object}  service.TickSnapshot
// @Failure      404  {object}  pv_informant.ErrorResponse
// @Router       /pv/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	snap, ok := h.services.Status.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no tick has run yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
