package handler

import (
	"net/http"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/gin-gonic/gin"

	"github.com/parlaycity/core/internal/api/middleware"
	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/pool"
)

// PoolHandler serves LP deposit/withdraw and the pool's read surface.
type PoolHandler struct {
	pool *pool.Pool
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(p *pool.Pool) *PoolHandler {
	return &PoolHandler{pool: p}
}

// Deposit godoc
// POST /api/pool/deposit [identity]
// Body: {"amount":"500000"}  — decimal string in asset units
func (h *PoolHandler) Deposit(c *gin.Context) {
	caller := middleware.GetAccountID(c)

	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	amount, err := domain.ParseAmount(body.Amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	shares, err := h.pool.Deposit(caller, caller, amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{
		"shares": shares,
		"assets": amount,
	})
}

// Withdraw godoc
// POST /api/pool/withdraw [identity]
// Body: {"shares":"123456789"}  — integer share count
func (h *PoolHandler) Withdraw(c *gin.Context) {
	caller := middleware.GetAccountID(c)

	var body struct {
		Shares string `json:"shares" binding:"required"`
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

	assets, err := h.pool.Withdraw(caller, caller, shares)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"shares": shares,
		"assets": assets,
	})
}

// Shares godoc
// GET /api/pool/shares [identity]
func (h *PoolHandler) Shares(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"shares": h.pool.SharesOf(caller),
	})
}

// State godoc
// GET /api/pool  (public)
func (h *PoolHandler) State(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"total_assets":   h.pool.TotalAssets(),
		"total_reserved": h.pool.TotalReserved(),
		"free_liquidity": h.pool.FreeLiquidity(),
		"max_payout":     h.pool.MaxPayout(),
		"total_shares":   h.pool.TotalShares(),
	})
}

// parsePagination reads ?page & ?limit with sane bounds.
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
