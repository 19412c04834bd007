package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corates/billing/internal/application/reconciliation/usecases"
	"github.com/corates/billing/internal/infrastructure/cache"
	"github.com/corates/billing/internal/infrastructure/config"
	"github.com/corates/billing/internal/infrastructure/email"
	"github.com/corates/billing/internal/infrastructure/repository"
	"github.com/corates/billing/internal/infrastructure/stripe"
	"github.com/corates/billing/internal/interfaces/cli/bootstrap"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/services/markdown"
	"github.com/corates/billing/internal/shared/utils"
)

var (
	opts        bootstrap.Options
	orgID       string
	checkStripe bool
	limit       int
	notify      bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation scan",
		Long: `Scan the subscription store and the webhook ledger for stuck states and print the report as JSON.
Without --org every organization is scanned. With --notify critical findings are mailed to the ops recipients.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&opts.Env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVar(&orgID, "org", "", "Scan a single organization")
	cmd.Flags().BoolVar(&checkStripe, "check-stripe", false, "Compare subscription status with Stripe")
	cmd.Flags().IntVar(&limit, "limit", 0, "Rows read per rule in a global scan (default: billing.scan_limit)")
	cmd.Flags().BoolVar(&notify, "notify", false, "Mail critical findings to notification.ops_recipients")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if orgID != "" && !utils.IsValidOrgID(orgID) {
		return fmt.Errorf("invalid organization ID %q", orgID)
	}
	if limit < 0 || limit > constants.MaxQueryLimit {
		return fmt.Errorf("--limit must be between 0 and %d", constants.MaxQueryLimit)
	}

	cfg, log, err := bootstrap.Load(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if notify && len(cfg.Notification.OpsRecipients) == 0 {
		return fmt.Errorf("--notify needs notification.ops_recipients")
	}

	db, closeDB, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	var fetcher usecases.SubscriptionFetcher
	if checkStripe {
		if cfg.Stripe.SecretKey == "" {
			return fmt.Errorf("--check-stripe needs stripe.secret_key")
		}
		fetcher = stripe.NewGateway(cfg.Stripe)
	}

	scanner := usecases.NewReconciliationScanner(
		repository.NewSubscriptionRepository(db, log),
		repository.NewLedgerRepository(db, log),
		fetcher,
		usecases.OptionsFromConfig(cfg.Billing),
		biztime.SystemClock{},
		log.Named("reconcile"),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scan := Scan{
		Scanner:     scanner,
		Thresholds:  usecases.ThresholdsFromConfig(cfg.Billing),
		OrgID:       orgID,
		Limit:       limit,
		CheckStripe: checkStripe,
	}
	if notify {
		reporter, closeRedis := newReporter(ctx, cfg, log)
		defer closeRedis()
		scan.Reporter = reporter
	}

	return scan.Run(ctx, cmd.OutOrStdout())
}

// newReporter mails critical findings to ops. With Redis reachable, findings
// already mailed within billing.alert_cooldown_minutes are skipped.
func newReporter(ctx context.Context, cfg *config.Config, log logger.Interface) (reporter, func()) {
	mailer := email.NewSMTPMailer(cfg.Notification.SMTP, markdown.NewRenderer())
	ops := usecases.NewOpsReporter(mailer, cfg.Notification.OpsRecipients, log)

	client, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		log.Warnw("alert cooldown disabled", "error", err)
		return ops, func() {}
	}
	if client == nil {
		return ops, func() {}
	}

	cooldown := time.Duration(cfg.Billing.AlertCooldownMinutes) * time.Minute
	dedup := usecases.NewDedupNotifier(ops, cache.NewAlertDeduplicator(client), cooldown, log)
	return dedup, func() { _ = client.Close() }
}

type scanner interface {
	Scan(ctx context.Context, orgID string, th usecases.Thresholds, checkExternal bool) (*usecases.Report, error)
	ScanGlobal(ctx context.Context, th usecases.Thresholds, limit int, checkExternal bool) (*usecases.GlobalReport, error)
}

type reporter interface {
	NotifyCritical(ctx context.Context, findings []usecases.Finding) (bool, error)
}

// Scan is one reconcile invocation.
type Scan struct {
	Scanner     scanner
	Reporter    reporter // nil unless --notify
	Thresholds  usecases.Thresholds
	OrgID       string
	Limit       int
	CheckStripe bool
}

// Run scans, prints the report and mails critical findings when a reporter
// is set. A mail failure is returned after the report has been printed.
func (s Scan) Run(ctx context.Context, out io.Writer) error {
	var (
		report   interface{}
		findings []usecases.Finding
	)

	if s.OrgID != "" {
		r, err := s.Scanner.Scan(ctx, s.OrgID, s.Thresholds, s.CheckStripe)
		if err != nil {
			return err
		}
		report, findings = r, r.Findings
	} else {
		r, err := s.Scanner.ScanGlobal(ctx, s.Thresholds, s.Limit, s.CheckStripe)
		if err != nil {
			return err
		}
		report, findings = r, r.Findings()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if s.Reporter == nil {
		return nil
	}
	if _, err := s.Reporter.NotifyCritical(ctx, findings); err != nil {
		return fmt.Errorf("failed to mail critical findings: %w", err)
	}
	return nil
}

