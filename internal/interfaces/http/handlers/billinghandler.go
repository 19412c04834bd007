package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// BillingHandler serves the read-only billing views.
type BillingHandler struct {
	getOrgBillingUseCase getOrgBillingUseCase
	listPlansUseCase     listPlansUseCase
	logger               logger.Interface
}

func NewBillingHandler(
	getOrgBillingUC getOrgBillingUseCase,
	listPlansUC listPlansUseCase,
	logger logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		getOrgBillingUseCase: getOrgBillingUC,
		listPlansUseCase:     listPlansUC,
		logger:               logger,
	}
}

// GetOrgBilling returns the resolved billing of an org with its full
// subscription and grant history.
func (h *BillingHandler) GetOrgBilling(c *gin.Context) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.getOrgBillingUseCase.Execute(c.Request.Context(), orgID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *BillingHandler) ListPlans(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "", h.listPlansUseCase.Execute())
}
