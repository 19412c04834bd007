package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/application/webhook/usecases"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// WebhookHandler is the processor-facing ingress. It is not authenticated;
// the signature is checked by the use case.
type WebhookHandler struct {
	handleUseCase handleStripeWebhookUseCase
	maxBodyBytes  int64
	logger        logger.Interface
}

func NewWebhookHandler(handleUC handleStripeWebhookUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		handleUseCase: handleUC,
		maxBodyBytes:  constants.MaxWebhookBodyBytes,
		logger:        logger,
	}
}

// StripeWebhook answers 200 for everything the ledger settled, including
// business failures and unverified deliveries. An unreadable body gets 400,
// a redelivery of an event still in flight 409, and 500 means retry.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	requestID := c.GetString(constants.ContextKeyRequestID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warnw("failed to read webhook body", "request_id", requestID, "error", err)
		utils.ErrorResponseWithError(c, errors.NewBadRequestError("unreadable request body").WithField("body"))
		return
	}

	result, err := h.handleUseCase.Execute(c.Request.Context(), usecases.HandleStripeWebhookCommand{
		Payload:   payload,
		Signature: c.GetHeader(constants.HeaderStripeSignature),
		RequestID: requestID,
		Route:     c.FullPath(),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.JSON(result.HTTPStatus, result)
}
