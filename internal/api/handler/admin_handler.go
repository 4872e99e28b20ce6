package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parlaycity/core/internal/api/middleware"
	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/oracle"
	"github.com/parlaycity/core/internal/registry"
)

// AdminHandler serves the leg catalog and both oracle surfaces.  Operator
// checks live in the core components; this layer only shapes requests.
type AdminHandler struct {
	registry *registry.Registry
	admin    *oracle.AdminOracle
	slow     *oracle.OptimisticOracle
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(r *registry.Registry, admin *oracle.AdminOracle, slow *oracle.OptimisticOracle) *AdminHandler {
	return &AdminHandler{registry: r, admin: admin, slow: slow}
}

// ──────────────────────────────────────────────────────────────────────────────
// Leg catalog
// ──────────────────────────────────────────────────────────────────────────────

// CreateLeg godoc
// POST /api/legs [identity, operator]
// Body: {"question":"...","source_ref":"...","probability":"0.5",
//
//	"cutoff_time":"RFC3339","earliest_resolve_time":"RFC3339","oracle_ref":"..."}
func (h *AdminHandler) CreateLeg(c *gin.Context) {
	caller := middleware.GetAccountID(c)

	var body struct {
		Question            string    `json:"question"              binding:"required"`
		SourceRef           string    `json:"source_ref"`
		Probability         string    `json:"probability"           binding:"required"`
		CutoffTime          time.Time `json:"cutoff_time"           binding:"required"`
		EarliestResolveTime time.Time `json:"earliest_resolve_time" binding:"required"`
		OracleRef           string    `json:"oracle_ref"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	probPPM, err := domain.ParseProbability(body.Probability)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	id, err := h.registry.CreateLeg(caller, domain.LegMeta{
		Question:            body.Question,
		SourceRef:           body.SourceRef,
		CutoffTime:          body.CutoffTime,
		EarliestResolveTime: body.EarliestResolveTime,
		ProbabilityPPM:      probPPM,
		OracleRef:           body.OracleRef,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	leg, err := h.registry.Get(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, leg)
}

// Deactivate godoc
// POST /api/legs/:id/deactivate [identity, operator]
func (h *AdminHandler) Deactivate(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	if err := h.registry.Deactivate(caller, id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"leg_id": id})
}

// GetLeg godoc
// GET /api/legs/:id  (public)
func (h *AdminHandler) GetLeg(c *gin.Context) {
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	leg, err := h.registry.Get(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, leg)
}

// ListLegs godoc
// GET /api/legs  (public)
func (h *AdminHandler) ListLegs(c *gin.Context) {
	page, limit := parsePagination(c)
	legs := h.registry.List()
	start := (page - 1) * limit
	if start > len(legs) {
		start = len(legs)
	}
	end := start + limit
	if end > len(legs) {
		end = len(legs)
	}
	respondList(c, legs[start:end], len(legs), page, limit)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fast-path resolution
// ──────────────────────────────────────────────────────────────────────────────

// Resolve godoc
// POST /api/legs/:id/resolve [identity, operator]
// Body: {"result":"yes","digest":"..."}
func (h *AdminHandler) Resolve(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	var body struct {
		Result string `json:"result" binding:"required"`
		Digest string `json:"digest"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if !h.resolveWindowOpen(c, id) {
		return
	}
	if err := h.admin.Resolve(caller, id, domain.LegResult(body.Result), body.Digest); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"leg_id": id})
}

// ──────────────────────────────────────────────────────────────────────────────
// Optimistic path
// ──────────────────────────────────────────────────────────────────────────────

// Propose godoc
// POST /api/legs/:id/propose [identity]
// Body: {"result":"yes","digest":"..."}
func (h *AdminHandler) Propose(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	var body struct {
		Result string `json:"result" binding:"required"`
		Digest string `json:"digest"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if !h.resolveWindowOpen(c, id) {
		return
	}
	if err := h.slow.Propose(caller, id, domain.LegResult(body.Result), body.Digest); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"leg_id": id})
}

// Challenge godoc
// POST /api/legs/:id/challenge [identity]
func (h *AdminHandler) Challenge(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	if err := h.slow.Challenge(caller, id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"leg_id": id})
}

// Finalize godoc
// POST /api/legs/:id/finalize  (permissionless)
func (h *AdminHandler) Finalize(c *gin.Context) {
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	if err := h.slow.Finalize(id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"leg_id": id})
}

// ResolveDispute godoc
// POST /api/legs/:id/resolve-dispute [identity, operator]
// Body: {"result":"no","digest":"...","proposer_correct":false}
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	caller := middleware.GetAccountID(c)
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	var body struct {
		Result          string `json:"result" binding:"required"`
		Digest          string `json:"digest"`
		ProposerCorrect bool   `json:"proposer_correct"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if err := h.slow.ResolveDispute(caller, id, domain.LegResult(body.Result), body.Digest, body.ProposerCorrect); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"leg_id": id})
}

// Status godoc
// GET /api/legs/:id/status?mode=fast|optimistic  (public)
func (h *AdminHandler) Status(c *gin.Context) {
	id, ok := parseLegID(c)
	if !ok {
		return
	}
	var adapter oracle.Adapter = h.admin
	if c.DefaultQuery("mode", "fast") == "optimistic" {
		adapter = h.slow
	}
	result, digest := adapter.StatusOf(id)
	respondSuccess(c, http.StatusOK, gin.H{
		"leg_id":      id,
		"result":      result,
		"digest":      digest,
		"can_resolve": adapter.CanResolve(id),
	})
}

// resolveWindowOpen rejects resolution attempts before the leg's earliest
// resolve time; writes the error response itself.
func (h *AdminHandler) resolveWindowOpen(c *gin.Context, legID uint64) bool {
	leg, err := h.registry.Get(legID)
	if err != nil {
		respondDomainError(c, err)
		return false
	}
	if time.Now().UTC().Before(leg.EarliestResolveTime) {
		respondError(c, http.StatusConflict, "ERR_NOT_READY", "leg not yet resolvable")
		return false
	}
	return true
}

// parseLegID reads the :id path parameter; writes the error response itself
// when malformed.
func parseLegID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_LEG_ID", "invalid leg id")
		return 0, false
	}
	return id, true
}
