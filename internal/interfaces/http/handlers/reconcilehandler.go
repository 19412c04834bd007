package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/application/reconciliation/usecases"
	webhookUsecases "github.com/corates/billing/internal/application/webhook/usecases"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// ReconcileHandler exposes the read-only diagnostics: per-org and global
// reconciliation scans and the webhook ledger.
type ReconcileHandler struct {
	scanner           reconciliationScanner
	listLedgerUseCase listLedgerUseCase
	defaults          usecases.Thresholds
	scanLimit         int
	logger            logger.Interface
}

func NewReconcileHandler(
	scanner reconciliationScanner,
	listLedgerUC listLedgerUseCase,
	defaults usecases.Thresholds,
	scanLimit int,
	logger logger.Interface,
) *ReconcileHandler {
	if scanLimit <= 0 {
		scanLimit = constants.DefaultScanLimit
	}
	return &ReconcileHandler{
		scanner:           scanner,
		listLedgerUseCase: listLedgerUC,
		defaults:          defaults.WithDefaults(),
		scanLimit:         scanLimit,
		logger:            logger,
	}
}

// ReconcileOrg scans one org. Threshold query parameters are minutes and
// override the configured defaults.
func (h *ReconcileHandler) ReconcileOrg(c *gin.Context) {
	orgID, err := utils.ParseOrgIDParam(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	th, checkStripe, err := h.scanParams(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	report, err := h.scanner.Scan(c.Request.Context(), orgID, th, checkStripe)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if report.HasCritical() {
		h.logger.Warnw("reconciliation found critical issues", "org_id", orgID, "findings", report.Summary.Total)
	}
	utils.SuccessResponse(c, http.StatusOK, "", report)
}

// StuckStates scans every org, grouping findings by org.
func (h *ReconcileHandler) StuckStates(c *gin.Context) {
	limit, err := utils.ParseLimit(c, h.scanLimit, constants.MaxQueryLimit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	th, checkStripe, err := h.scanParams(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	report, err := h.scanner.ScanGlobal(c.Request.Context(), th, limit, checkStripe)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", report)
}

// ListLedger returns ledger entries newest first.
func (h *ReconcileHandler) ListLedger(c *gin.Context) {
	var req LedgerQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.TranslateBindingError(err))
		return
	}

	limit, err := utils.ParseLimit(c, constants.DefaultLedgerLimit, constants.MaxQueryLimit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	entries, err := h.listLedgerUseCase.Execute(c.Request.Context(), webhookUsecases.ListLedgerQuery{
		OrgID:  req.OrgID,
		Status: req.Status,
		Type:   req.Type,
		Limit:  limit,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", entries)
}

func (h *ReconcileHandler) scanParams(c *gin.Context) (usecases.Thresholds, bool, error) {
	th := h.defaults

	overrides := []struct {
		name   string
		target *int
	}{
		{"incompleteThreshold", &th.IncompleteMinutes},
		{"checkoutNoSubThreshold", &th.CheckoutNoSubMinutes},
		{"processingLagThreshold", &th.ProcessingLagMinutes},
	}
	for _, o := range overrides {
		minutes, ok, err := utils.ParseOptionalMinutes(c, o.name)
		if err != nil {
			return th, false, err
		}
		if ok {
			*o.target = minutes
		}
	}

	checkStripe, err := utils.ParseBoolQuery(c, "checkStripe")
	if err != nil {
		return th, false, err
	}
	return th, checkStripe, nil
}
