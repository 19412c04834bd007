package usecases

import (
	"time"

	"github.com/corates/billing/internal/shared/config"
)

// ThresholdsFromConfig maps the billing config onto scan thresholds.
func ThresholdsFromConfig(cfg config.BillingConfig) Thresholds {
	return Thresholds{
		IncompleteMinutes:    cfg.IncompleteThresholdMinutes,
		CheckoutNoSubMinutes: cfg.CheckoutNoSubThresholdMins,
		ProcessingLagMinutes: cfg.ProcessingLagThresholdMins,
	}.WithDefaults()
}

// OptionsFromConfig maps the billing config onto scanner options.
func OptionsFromConfig(cfg config.BillingConfig) ScannerOptions {
	return ScannerOptions{
		ScanLimit:           cfg.ScanLimit,
		ExternalConcurrency: cfg.ExternalCheckConcurrency,
		ExternalTimeout:     time.Duration(cfg.ExternalCheckTimeoutSeconds) * time.Second,
	}
}
