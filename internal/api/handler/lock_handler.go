package handler

import (
	"net/http"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/api/middleware"
	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/lockup"
)

// LockHandler serves the lock facility endpoints.
type LockHandler struct {
	facility *lockup.Facility
}

// NewLockHandler creates a LockHandler.
func NewLockHandler(f *lockup.Facility) *LockHandler {
	return &LockHandler{facility: f}
}

// Lock godoc
// POST /api/locks [identity]
// Body: {"shares":"1000000000","tier":"30d"}
func (h *LockHandler) Lock(c *gin.Context) {
	caller := middleware.GetAccountID(c)

	var body struct {
		Shares string `json:"shares" binding:"required"`
		Tier   string `json:"tier"   binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	shares, ok := sdkmath.NewIntFromString(body.Shares)
	if !ok {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SHARES", "shares must be an integer string")
		return
	}

	id, err := h.facility.Lock(caller, shares, domain.LockTier(body.Tier))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	pos, err := h.facility.GetPosition(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, pos)
}

// Unlock godoc
// POST /api/locks/:id/unlock [identity]
func (h *LockHandler) Unlock(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parsePositionID(c)
	if !ok {
		return
	}
	if err := h.facility.Unlock(caller, id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"position_id": id})
}

// EarlyWithdraw godoc
// POST /api/locks/:id/early-withdraw [identity]
func (h *LockHandler) EarlyWithdraw(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parsePositionID(c)
	if !ok {
		return
	}
	returned, err := h.facility.EarlyWithdraw(caller, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"position_id": id, "returned_shares": returned})
}

// SettleRewards godoc
// POST /api/locks/:id/settle  (permissionless)
func (h *LockHandler) SettleRewards(c *gin.Context) {
	id, ok := parsePositionID(c)
	if !ok {
		return
	}
	if err := h.facility.SettleRewards(id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"position_id": id})
}

// ClaimFees godoc
// POST /api/locks/claim [identity]
func (h *LockHandler) ClaimFees(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	amount, err := h.facility.ClaimFees(caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"amount": amount})
}

// PendingReward godoc
// GET /api/locks/:id/pending  (public)
func (h *LockHandler) PendingReward(c *gin.Context) {
	id, ok := parsePositionID(c)
	if !ok {
		return
	}
	pending, err := h.facility.PendingReward(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"position_id": id, "pending": pending})
}

// PendingRewards godoc
// GET /api/locks/pending [identity]
func (h *LockHandler) PendingRewards(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	respondSuccess(c, http.StatusOK, gin.H{"pending": h.facility.PendingRewards(caller)})
}

// GetPosition godoc
// GET /api/locks/:id  (public)
func (h *LockHandler) GetPosition(c *gin.Context) {
	id, ok := parsePositionID(c)
	if !ok {
		return
	}
	pos, err := h.facility.GetPosition(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, pos)
}

// Sweep godoc
// POST /api/locks/sweep [identity, operator]
// Body: {"to":"<account uuid>"}
func (h *LockHandler) Sweep(c *gin.Context) {
	caller := middleware.GetAccountID(c)

	var body struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	to, err := uuid.Parse(body.To)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ACCOUNT", "invalid destination account")
		return
	}

	swept, err := h.facility.SweepPenaltyShares(caller, to)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"swept_shares": swept})
}

// parsePositionID reads the :id path parameter; writes the error response
// itself when malformed.
func parsePositionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_POSITION_ID", "invalid position id")
		return 0, false
	}
	return id, true
}
