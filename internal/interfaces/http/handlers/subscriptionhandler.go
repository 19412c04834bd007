package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/application/billing/usecases"
	"github.com/corates/billing/internal/shared/id"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// SubscriptionHandler handles admin edits of org subscriptions
type SubscriptionHandler struct {
	createUseCase createSubscriptionUseCase
	updateUseCase updateSubscriptionUseCase
	cancelUseCase cancelSubscriptionUseCase
	logger        logger.Interface
}

func NewSubscriptionHandler(
	createUC createSubscriptionUseCase,
	updateUC updateSubscriptionUseCase,
	cancelUC cancelSubscriptionUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		createUseCase: createUC,
		updateUseCase: updateUC,
		cancelUseCase: cancelUC,
		logger:        logger,
	}
}

func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req CreateSubscriptionRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for create subscription", "org_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), usecases.CreateSubscriptionCommand{
		OrgID:                   orgID,
		PlanID:                  req.PlanID,
		Status:                  req.Status,
		PeriodStart:             req.PeriodStart,
		PeriodEnd:               req.PeriodEnd,
		CancelAtPeriodEnd:       req.CancelAtPeriodEnd,
		ExternalCustomerRef:     req.ExternalCustomerRef,
		ExternalSubscriptionRef: req.ExternalSubscriptionRef,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Subscription created successfully")
}

func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	orgID, subscriptionID, ok := orgAndRecordID(c, id.PrefixSubscription, "subscription")
	if !ok {
		return
	}

	var req UpdateSubscriptionRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for update subscription", "subscription_id", subscriptionID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.updateUseCase.Execute(c.Request.Context(), usecases.UpdateSubscriptionCommand{
		OrgID:             orgID,
		SubscriptionID:    subscriptionID,
		PlanID:            req.PlanID,
		Status:            req.Status,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		CancelAtPeriodEnd: req.CancelAtPeriodEnd,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Subscription updated successfully", result)
}

// CancelSubscription is a soft cancel: the row stays, with status canceled.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	orgID, subscriptionID, ok := orgAndRecordID(c, id.PrefixSubscription, "subscription")
	if !ok {
		return
	}

	result, err := h.cancelUseCase.Execute(c.Request.Context(), usecases.CancelSubscriptionCommand{
		OrgID:          orgID,
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Subscription canceled successfully", result)
}

// orgAndRecordID reads :orgId and a prefixed :id, writing the error response
// itself when either is malformed.
func orgAndRecordID(c *gin.Context, prefix, entity string) (orgID, recordID string, ok bool) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return "", "", false
	}
	recordID, err = utils.ParseSIDParam(c, "id", prefix, entity)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return "", "", false
	}
	return orgID, recordID, true
}
