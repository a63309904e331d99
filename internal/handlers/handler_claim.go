package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/dto"
	"github.com/openclaims/expense_claims_app/internal/middleware"
)

// claimHandler handles HTTP requests for the claim lifecycle.
type claimHandler struct {
	claimService portssvc.ClaimSvcFacade
	auditService portssvc.AuditReaderSvc
}

func newClaimHandler(cs portssvc.ClaimSvcFacade, as portssvc.AuditReaderSvc) *claimHandler {
	return &claimHandler{
		claimService: cs,
		auditService: as,
	}
}

// registerClaimRoutes registers claim routes under an organization group.
func registerClaimRoutes(rg *gin.RouterGroup, claimService portssvc.ClaimSvcFacade, auditService portssvc.AuditReaderSvc) {
	h := newClaimHandler(claimService, auditService)

	claims := rg.Group("/claims")
	{
		claims.POST("", h.createClaim)
		claims.GET("", h.listClaims)
		claims.GET("/:claim_id", h.getClaim)
		claims.PUT("/:claim_id", h.updateDraft)
		claims.POST("/:claim_id/submit", h.submitClaim)
		claims.POST("/:claim_id/approve", h.approveLevel)
		claims.POST("/:claim_id/reject", h.rejectLevel)
		claims.POST("/:claim_id/forward", h.forwardLevel)
		claims.POST("/:claim_id/reimburse", h.reimburseClaim)
		claims.POST("/:claim_id/cancel", h.cancelClaim)
		claims.GET("/:claim_id/audit", h.listAuditEvents)
	}
}

// respondServiceError maps service-layer sentinel errors onto HTTP statuses.
// Unknown errors become opaque 500s; the detail stays in the logs.
func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConfiguration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(fallbackMsg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
	}
}

// createClaim godoc
// @Summary Create a new expense claim
// @Description Creates a claim in Draft for the authenticated employee.
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim body dto.CreateClaimRequest true "Claim details"
// @Success 201 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims [post]
func (h *claimHandler) createClaim(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")

	var req dto.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateClaim", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.CreateClaim(c.Request.Context(), orgID, req, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to create claim")
		return
	}

	c.JSON(http.StatusCreated, dto.ToClaimResponse(claim))
}

// listClaims godoc
// @Summary List claims
// @Description Lists claims in the organization, optionally filtered by status and employee.
// @Tags claims
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   status query string false "Claim status filter"
// @Param   employeeID query string false "Employee filter"
// @Param   limit query int false "Page size"
// @Param   offset query int false "Page offset"
// @Success 200 {object} dto.ListClaimsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims [get]
func (h *claimHandler) listClaims(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")

	var params dto.ListClaimsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListClaims", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.claimService.ListClaims(c.Request.Context(), orgID, userID, params)
	if err != nil {
		respondServiceError(c, err, "Failed to list claims")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getClaim godoc
// @Summary Get a claim
// @Description Retrieves a full claim with line items and approval ledger.
// @Tags claims
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Success 200 {object} dto.ClaimResponse
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id} [get]
func (h *claimHandler) getClaim(c *gin.Context) {
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.GetClaim(c.Request.Context(), orgID, claimID, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to get claim")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// updateDraft godoc
// @Summary Update a draft claim
// @Description Replaces the editable fields of a claim still in Draft.
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Param   claim body dto.UpdateClaimRequest true "Fields to update"
// @Success 200 {object} dto.ClaimResponse
// @Failure 409 {object} map[string]string "Claim is not in draft"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id} [put]
func (h *claimHandler) updateDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	var req dto.UpdateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateDraft", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.UpdateDraft(c.Request.Context(), orgID, claimID, req, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to update claim")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// submitClaim godoc
// @Summary Submit a claim for approval
// @Description Validates the claim against the active policy and routes it for approval.
// @Tags claims
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Success 200 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string "Policy violations block submission"
// @Failure 409 {object} map[string]string "Claim is not in draft"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/submit [post]
func (h *claimHandler) submitClaim(c *gin.Context) {
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.SubmitClaim(c.Request.Context(), orgID, claimID, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to submit claim")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// approveLevel godoc
// @Summary Approve the current approval level
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Param   approval body dto.ApproveLevelRequest true "Level and optional comment"
// @Success 200 {object} dto.ClaimResponse
// @Failure 403 {object} map[string]string "Actor role does not match"
// @Failure 409 {object} map[string]string "Level is not current"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/approve [post]
func (h *claimHandler) approveLevel(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	var req dto.ApproveLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApproveLevel", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.ApproveLevel(c.Request.Context(), orgID, claimID, req.Level, userID, req.Comment)
	if err != nil {
		respondServiceError(c, err, "Failed to approve level")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// rejectLevel godoc
// @Summary Reject the current approval level
// @Description Rejects the claim; rejection at any level is final.
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Param   rejection body dto.RejectLevelRequest true "Level and reason"
// @Success 200 {object} dto.ClaimResponse
// @Failure 403 {object} map[string]string "Actor role does not match"
// @Failure 409 {object} map[string]string "Level is not current"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/reject [post]
func (h *claimHandler) rejectLevel(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	var req dto.RejectLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RejectLevel", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.RejectLevel(c.Request.Context(), orgID, claimID, req.Level, userID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "Failed to reject level")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// forwardLevel godoc
// @Summary Forward the current approval level to another role
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Param   forward body dto.ForwardLevelRequest true "Level and new approver role"
// @Success 200 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string "Role not in approval hierarchy"
// @Failure 409 {object} map[string]string "Level is not current"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/forward [post]
func (h *claimHandler) forwardLevel(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	var req dto.ForwardLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ForwardLevel", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.ForwardLevel(c.Request.Context(), orgID, claimID, req.Level, userID, req.NewApproverRole, req.Reason)
	if err != nil {
		respondServiceError(c, err, "Failed to forward level")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// reimburseClaim godoc
// @Summary Record reimbursement of an approved claim
// @Description Marks the claim reimbursed. Safe to retry; repeats return the existing record.
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Param   payment body dto.ReimburseRequest true "Payment details"
// @Success 200 {object} dto.ClaimResponse
// @Failure 409 {object} map[string]string "Claim is not approved"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/reimburse [post]
func (h *claimHandler) reimburseClaim(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	var req dto.ReimburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Reimburse", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.Reimburse(c.Request.Context(), orgID, claimID, userID, req.Method, req.Reference)
	if err != nil {
		respondServiceError(c, err, "Failed to reimburse claim")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// cancelClaim godoc
// @Summary Cancel a claim
// @Description Cancels a claim that has not been approved, rejected or reimbursed.
// @Tags claims
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Param   cancellation body dto.CancelClaimRequest true "Cancellation reason"
// @Success 200 {object} dto.ClaimResponse
// @Failure 409 {object} map[string]string "Claim cannot be cancelled"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/cancel [post]
func (h *claimHandler) cancelClaim(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	var req dto.CancelClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CancelClaim", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claim, err := h.claimService.CancelClaim(c.Request.Context(), orgID, claimID, userID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "Failed to cancel claim")
		return
	}

	c.JSON(http.StatusOK, dto.ToClaimResponse(claim))
}

// listAuditEvents godoc
// @Summary List a claim's audit trail
// @Tags claims
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   claim_id path string true "Claim ID"
// @Success 200 {object} dto.ListAuditEventsResponse
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/claims/{claim_id}/audit [get]
func (h *claimHandler) listAuditEvents(c *gin.Context) {
	orgID := c.Param("organization_id")
	claimID := c.Param("claim_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// Confirm the claim is visible to the caller before exposing its trail.
	if _, err := h.claimService.GetClaim(c.Request.Context(), orgID, claimID, userID); err != nil {
		respondServiceError(c, err, "Failed to get claim")
		return
	}

	events, err := h.auditService.ListAuditEventsByClaim(c.Request.Context(), claimID)
	if err != nil {
		respondServiceError(c, err, "Failed to list audit events")
		return
	}

	c.JSON(http.StatusOK, dto.ListAuditEventsResponse{Events: dto.ToAuditEventResponses(events)})
}
