package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/dto"
	"github.com/openclaims/expense_claims_app/internal/middleware"
)

// policyHandler handles HTTP requests for policy management.
type policyHandler struct {
	policyService portssvc.PolicySvcFacade
}

func newPolicyHandler(ps portssvc.PolicySvcFacade) *policyHandler {
	return &policyHandler{policyService: ps}
}

// registerPolicyRoutes registers policy routes under an organization group.
func registerPolicyRoutes(rg *gin.RouterGroup, policyService portssvc.PolicySvcFacade) {
	h := newPolicyHandler(policyService)

	policies := rg.Group("/policies")
	{
		policies.POST("", h.createPolicy)
		policies.GET("", h.listPolicies)
		policies.GET("/active", h.getActivePolicy)
		policies.GET("/:policy_id", h.getPolicy)
	}
}

// createPolicy godoc
// @Summary Create a new policy version
// @Description Validates and stores a new version of the organization's expense policy.
// @Tags policies
// @Accept  json
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   policy body dto.CreatePolicyRequest true "Policy document"
// @Success 201 {object} dto.PolicyResponse
// @Failure 422 {object} map[string]string "Policy is malformed"
// @Security BearerAuth
// @Router /organizations/{organization_id}/policies [post]
func (h *policyHandler) createPolicy(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID := c.Param("organization_id")

	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePolicy", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), orgID, req, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to create policy")
		return
	}

	c.JSON(http.StatusCreated, dto.ToPolicyResponse(policy))
}

// listPolicies godoc
// @Summary List policy versions
// @Tags policies
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Success 200 {array} dto.PolicyResponse
// @Security BearerAuth
// @Router /organizations/{organization_id}/policies [get]
func (h *policyHandler) listPolicies(c *gin.Context) {
	orgID := c.Param("organization_id")

	policies, err := h.policyService.ListPolicies(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err, "Failed to list policies")
		return
	}

	c.JSON(http.StatusOK, dto.ToPolicyResponses(policies))
}

// getActivePolicy godoc
// @Summary Get the currently active policy
// @Description Returns the policy version governing submissions right now.
// @Tags policies
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Success 200 {object} dto.PolicyResponse
// @Failure 404 {object} map[string]string "No active policy"
// @Security BearerAuth
// @Router /organizations/{organization_id}/policies/active [get]
func (h *policyHandler) getActivePolicy(c *gin.Context) {
	orgID := c.Param("organization_id")

	policy, err := h.policyService.GetActivePolicy(c.Request.Context(), orgID, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err, "Failed to get active policy")
		return
	}

	c.JSON(http.StatusOK, dto.ToPolicyResponse(policy))
}

// getPolicy godoc
// @Summary Get one policy version
// @Tags policies
// @Produce  json
// @Param   organization_id path string true "Organization ID"
// @Param   policy_id path string true "Policy ID"
// @Success 200 {object} dto.PolicyResponse
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/policies/{policy_id} [get]
func (h *policyHandler) getPolicy(c *gin.Context) {
	orgID := c.Param("organization_id")
	policyID := c.Param("policy_id")

	policy, err := h.policyService.GetPolicyByID(c.Request.Context(), policyID)
	if err != nil {
		respondServiceError(c, err, "Failed to get policy")
		return
	}
	if policy.OrganizationID != orgID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, dto.ToPolicyResponse(policy))
}
