package handler

import (
	"net/http"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/gin-gonic/gin"

	"github.com/parlaycity/core/internal/api/middleware"
	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/engine"
)

// TicketHandler serves ticket purchase, settlement, and claim endpoints.
type TicketHandler struct {
	engine *engine.Engine
}

// NewTicketHandler creates a TicketHandler.
func NewTicketHandler(e *engine.Engine) *TicketHandler {
	return &TicketHandler{engine: e}
}

// Buy godoc
// POST /api/tickets [identity]
// Body: {"leg_ids":[1,2],"sides":["YES","NO"],"stake":"50","payout_mode":"classic"}
func (h *TicketHandler) Buy(c *gin.Context) {
	caller := middleware.GetAccountID(c)

	var body struct {
		LegIDs     []uint64 `json:"leg_ids"     binding:"required"`
		Sides      []string `json:"sides"       binding:"required"`
		Stake      string   `json:"stake"       binding:"required"`
		PayoutMode string   `json:"payout_mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	stake, err := domain.ParseAmount(body.Stake)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if stake.IsZero() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "stake must be positive")
		return
	}
	sides := make([]domain.Side, len(body.Sides))
	for i, s := range body.Sides {
		sides[i] = domain.Side(s)
	}

	ticket, err := h.engine.BuyTicketWithMode(caller, body.LegIDs, sides, stake, domain.PayoutMode(body.PayoutMode))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, ticket)
}

// Settle godoc
// POST /api/tickets/:id/settle  (permissionless)
func (h *TicketHandler) Settle(c *gin.Context) {
	id, ok := parseTicketID(c)
	if !ok {
		return
	}
	if err := h.engine.SettleTicket(id); err != nil {
		respondDomainError(c, err)
		return
	}
	ticket, err := h.engine.GetTicket(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ticket)
}

// ClaimProgressive godoc
// POST /api/tickets/:id/claim-progressive [identity]
func (h *TicketHandler) ClaimProgressive(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseTicketID(c)
	if !ok {
		return
	}
	claimed, err := h.engine.ClaimProgressive(caller, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"claimed": claimed})
}

// Cashout godoc
// POST /api/tickets/:id/cashout [identity]
// Body: {"min_out":"19306000"}  — base units; slippage floor on the value
func (h *TicketHandler) Cashout(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseTicketID(c)
	if !ok {
		return
	}

	var body struct {
		MinOut string `json:"min_out"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	minOut := sdkmath.ZeroInt()
	if body.MinOut != "" {
		var ok bool
		minOut, ok = sdkmath.NewIntFromString(body.MinOut)
		if !ok || minOut.IsNegative() {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "min_out must be a non-negative integer string")
			return
		}
	}

	value, err := h.engine.CashoutEarly(caller, id, minOut)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"cashout_value": value})
}

// Claim godoc
// POST /api/tickets/:id/claim [identity]
func (h *TicketHandler) Claim(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseTicketID(c)
	if !ok {
		return
	}
	amount, err := h.engine.ClaimPayout(caller, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"amount": amount})
}

// Get godoc
// GET /api/tickets/:id  (public)
func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseTicketID(c)
	if !ok {
		return
	}
	ticket, err := h.engine.GetTicket(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ticket)
}

// Count godoc
// GET /api/tickets/count  (public)
func (h *TicketHandler) Count(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"count": h.engine.TicketCount()})
}

// parseTicketID reads the :id path parameter; writes the error response
// itself when malformed.
func parseTicketID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TICKET_ID", "invalid ticket id")
		return 0, false
	}
	return id, true
}
