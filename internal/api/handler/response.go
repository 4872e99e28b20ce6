package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parlaycity/core/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondDomainError maps the engine's closed error taxonomy onto HTTP.
// Every revert is one categorized error to display; there is no silent
// failure path.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsInvalidArgument(err):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ARGUMENT", err.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusForbidden, "ERR_UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrSlippage):
		respondError(c, http.StatusConflict, "ERR_SLIPPAGE", err.Error())
	case errors.Is(err, domain.ErrNotReady):
		respondError(c, http.StatusConflict, "ERR_NOT_READY", err.Error())
	case errors.Is(err, domain.ErrAlreadyResolved):
		respondError(c, http.StatusConflict, "ERR_ALREADY_RESOLVED", err.Error())
	case errors.Is(err, domain.ErrPolicyViolation):
		respondError(c, http.StatusConflict, "ERR_POLICY_VIOLATION", err.Error())
	case errors.Is(err, domain.ErrInsufficientLiquidity):
		respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_LIQUIDITY", err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "ERR_NOT_CONFIGURED", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal error")
	}
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}
