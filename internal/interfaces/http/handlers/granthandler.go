package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/application/billing/usecases"
	"github.com/corates/billing/internal/shared/id"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// GrantHandler handles time-boxed access grants
type GrantHandler struct {
	createUseCase        createGrantUseCase
	updateUseCase        updateGrantUseCase
	revokeUseCase        revokeGrantUseCase
	trialUseCase         grantTrialUseCase
	singleProjectUseCase grantSingleProjectUseCase
	logger               logger.Interface
}

func NewGrantHandler(
	createUC createGrantUseCase,
	updateUC updateGrantUseCase,
	revokeUC revokeGrantUseCase,
	trialUC grantTrialUseCase,
	singleProjectUC grantSingleProjectUseCase,
	logger logger.Interface,
) *GrantHandler {
	return &GrantHandler{
		createUseCase:        createUC,
		updateUseCase:        updateUC,
		revokeUseCase:        revokeUC,
		trialUseCase:         trialUC,
		singleProjectUseCase: singleProjectUC,
		logger:               logger,
	}
}

func (h *GrantHandler) CreateGrant(c *gin.Context) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req CreateGrantRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for create grant", "org_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), usecases.CreateGrantCommand{
		OrgID:     orgID,
		Type:      req.Type,
		StartsAt:  req.StartsAt,
		ExpiresAt: req.ExpiresAt,
		Metadata:  req.Metadata,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Grant created successfully")
}

func (h *GrantHandler) UpdateGrant(c *gin.Context) {
	orgID, grantID, ok := orgAndRecordID(c, id.PrefixGrant, "grant")
	if !ok {
		return
	}

	var req UpdateGrantRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for update grant", "grant_id", grantID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.updateUseCase.Execute(c.Request.Context(), usecases.UpdateGrantCommand{
		OrgID:     orgID,
		GrantID:   grantID,
		StartsAt:  req.StartsAt,
		ExpiresAt: req.ExpiresAt,
		Metadata:  req.Metadata,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Grant updated successfully", result)
}

// RevokeGrant marks the grant revoked. Revoked grants stay in history.
func (h *GrantHandler) RevokeGrant(c *gin.Context) {
	orgID, grantID, ok := orgAndRecordID(c, id.PrefixGrant, "grant")
	if !ok {
		return
	}

	result, err := h.revokeUseCase.Execute(c.Request.Context(), usecases.RevokeGrantCommand{
		OrgID:   orgID,
		GrantID: grantID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Grant revoked successfully", result)
}

// GrantTrial answers 409 when the org ever had a trial.
func (h *GrantHandler) GrantTrial(c *gin.Context) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req GrantShortcutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.trialUseCase.Execute(c.Request.Context(), usecases.GrantTrialCommand{
		OrgID:    orgID,
		Metadata: req.Metadata,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Trial granted successfully")
}

// GrantSingleProject creates the grant, or extends the active one and answers 200.
func (h *GrantHandler) GrantSingleProject(c *gin.Context) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req GrantShortcutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.singleProjectUseCase.Execute(c.Request.Context(), usecases.GrantSingleProjectCommand{
		OrgID:    orgID,
		Metadata: req.Metadata,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if result.Extended {
		utils.SuccessResponse(c, http.StatusOK, "Single project grant extended", result)
		return
	}
	utils.CreatedResponse(c, result, "Single project grant created")
}
