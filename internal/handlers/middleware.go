package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorIDKey holds the authenticated operator id in the gin context.
const operatorIDKey = "operatorId"

// requireOperator guards routes that change the worker set or the policy.
// It expects "Authorization: Bearer <jwt>"; the scheme is case-insensitive.
func (h *Handler) requireOperator(c *gin.Context) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	switch {
	case scheme == "":
		h.rejectOperator(c, "missing Authorization header", nil)
		return
	case !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "":
		h.rejectOperator(c, "invalid Authorization header format", nil)
		return
	}

	id, err := h.services.Authorization.ParseToken(strings.TrimSpace(token))
	if err != nil {
		h.rejectOperator(c, "invalid or expired token", err)
		return
	}

	c.Set(operatorIDKey, id)
	c.Next()
}

func (h *Handler) rejectOperator(c *gin.Context, msg string, err error) {
	if h.log != nil {
		h.log.Infow("operator_rejected", "route", c.FullPath(), "reason", msg, "err", err)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// operatorID returns the id set by requireOperator, or 0.
func operatorID(c *gin.Context) int {
	return c.GetInt(operatorIDKey)
}
