package handlers

import (
	"net/http"

	pvi "pv_informant"

	"github.com/gin-gonic/gin"
)

// @Summary      Worker activity history
// @Description  Coalesced working/not-working windows of one worker. Same time rules as /pv.
// @Tags         workers
// @Produce      json
// @Param        address  path      string  true   "MAC address"  example(aa:bb:cc:dd:ee:ff)
// @Param        from     query     string  false  "Start of range"
// @Param        to       query     string  false  "End of range"
// @Success      200      {array}   pv_informant.ActivityInterval
// @Failure      400      {object}  pv_informant.ErrorResponse
// @Failure      404      {object}  pv_informant.ErrorResponse
// @Failure      503      {object}  pv_informant.ErrorResponse
// @Router       /worker/{address} [get]
func (h *Handler) getActivity(c *gin.Context) {
	address := c.Param("address")
	p, ok := h.parseRange(c)
	if !ok {
		return
	}
	intervals, err := h.services.Registry.QueryActivityIntervals(c.Request.Context(), address, p)
	if err != nil {
		h.logAndJSONError(c, statusFor(err, http.StatusNotFound), "activity_query_failed", err, "address", address)
		return
	}
	c.JSON(http.StatusOK, pvi.NewActivityIntervals(intervals))
}

// @Summary      Report worker status
// @Description  A registered worker reports whether it is working. The answer says whether it was woken by the latest dispatch.
// @Tags         workers
// @Accept       json
// @Produce      json
// @Param        address  path      string                     true  "MAC address"
// @Param        body     body      pv_informant.ReportRequest  true  "Status"
// @Success      200      {object}  pv_informant.ReportResponse
// @Failure      400      {object}  pv_informant.ErrorResponse
// @Failure      409      {object}  pv_informant.ErrorResponse
// @Failure      503      {object}  pv_informant.ErrorResponse
// @Router       /worker/{address}/report [post]
func (h *Handler) report(c *gin.Context) {
	address := c.Param("address")
	var body pvi.ReportRequest
	if ok := h.bindJSONOrBadRequest(c, &body); !ok {
		return
	}
	res, err := h.services.Registry.Report(c.Request.Context(), address, *body.Status)
	if err != nil {
		h.logAndJSONError(c, statusFor(err, http.StatusConflict), "report_failed", err, "address", address)
		return
	}
	c.JSON(http.StatusOK, pvi.ReportResponse{Woken: res.Woken})
}

// @Summary      Register worker
// @Description  Idempotent; registering a known worker returns it unchanged.
// @Tags         workers
// @Produce      json
// @Param        address  path      string  true  "MAC address"
// @Success      200      {object}  models.Worker
// @Failure      400      {object}  pv_informant.ErrorResponse
// @Failure      401      {object}  pv_informant.ErrorResponse
// @Failure      503      {object}  pv_informant.ErrorResponse
// @Router       /worker/{address} [post]
// @Security     BearerAuth
func (h *Handler) register(c *gin.Context) {
	address := c.Param("address")
	w, err := h.services.Registry.Register(c.Request.Context(), address)
	if err != nil {
		h.logAndJSONError(c, statusFor(err, http.StatusNotFound), "register_failed", err, "address", address)
		return
	}
	if h.log != nil {
		h.log.Infow("worker_registered_via_api", "address", w.Address, "operator_id", operatorID(c))
	}
	c.JSON(http.StatusOK, w)
}

// @Summary      List workers
// @Tags         workers
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, workers"
// @Router       /workers [get]
func (h *Handler) listWorkers(c *gin.Context) {
	ws := h.services.Registry.Workers()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(ws),
		"workers": ws,
	})
}
