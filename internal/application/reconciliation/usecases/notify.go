package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/corates/billing/internal/infrastructure/email"
	"github.com/corates/billing/internal/shared/logger"
)

// Mailer delivers an operator mail.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

// OpsReporter mails critical reconciliation findings to operators.
type OpsReporter struct {
	mailer     Mailer
	recipients []string
	logger     logger.Interface
}

func NewOpsReporter(mailer Mailer, recipients []string, logger logger.Interface) *OpsReporter {
	return &OpsReporter{mailer: mailer, recipients: recipients, logger: logger}
}

// NotifyCritical sends one mail listing the critical findings, if any.
// sent is false when there was nothing to report.
func (r *OpsReporter) NotifyCritical(ctx context.Context, findings []Finding) (sent bool, err error) {
	var critical []Finding
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			critical = append(critical, f)
		}
	}
	if len(critical) == 0 {
		return false, nil
	}

	msg := email.Message{
		To:       r.recipients,
		Subject:  fmt.Sprintf("[billing] %d critical reconciliation finding(s)", len(critical)),
		Markdown: RenderMarkdown(critical),
	}
	if err := r.mailer.Send(ctx, msg); err != nil {
		r.logger.Errorw("failed to mail reconciliation findings", "count", len(critical), "error", err)
		return false, err
	}
	r.logger.Infow("reconciliation findings mailed", "count", len(critical), "recipients", len(r.recipients))
	return true, nil
}

// RenderMarkdown lays findings out as a markdown table.
func RenderMarkdown(findings []Finding) string {
	var b strings.Builder
	b.WriteString("## Billing reconciliation\n\n")
	if len(findings) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}
	b.WriteString("| Severity | Type | Org | Age (min) | Description |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, f := range findings {
		age := "-"
		if f.AgeMinutes != nil {
			age = fmt.Sprintf("%d", *f.AgeMinutes)
		}
		org := f.OrgID
		if org == "" {
			org = "unlinked"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			f.Severity, f.Type, org, age, strings.ReplaceAll(f.Description, "|", "\\|"))
	}
	return b.String()
}
