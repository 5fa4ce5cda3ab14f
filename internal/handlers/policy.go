package handlers

import (
	"net/http"

	"pv_informant/internal/decision"

	"github.com/gin-gonic/gin"
)

// @Summary      Active threshold policy
// @Tags         policy
// @Produce      json
// @Success      200  {object}  decision.ThresholdPolicy
// @Router       /policy [get]
func (h *Handler) getPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Policy.Load())
}

// @Summary      Replace threshold policy
// @Description  Atomically swaps all four thresholds. Each low must be <= its high.
// @Tags         policy
// @Accept       json
// @Produce      json
// @Param        body  body      decision.ThresholdPolicy  true  "New policy"
// @Success      200   {object}  map[string]interface{}    "previous, current"
// @Failure      400   {object}  pv_informant.ErrorResponse
// @Failure      401   {object}  pv_informant.ErrorResponse
// @Router       /policy [put]
// @Security     BearerAuth
func (h *Handler) putPolicy(c *gin.Context) {
	var p decision.ThresholdPolicy
	if ok := h.bindJSONOrBadRequest(c, &p); !ok {
		return
	}
	prev, err := h.services.Policy.Swap(p)
	if err != nil {
		h.logAndJSONError(c, statusFor(err, http.StatusNotFound), "policy_rejected", err)
		return
	}
	if h.log != nil {
		h.log.Infow("policy_replaced", "operator_id", operatorID(c), "previous", prev, "current", p)
	}
	c.JSON(http.StatusOK, gin.H{
		"previous": prev,
		"current":  p,
	})
}
