// Package app wires configuration, Google API adapters, sinks and checkpoint
// storage into the two audit services.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/coder/quartz"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"gw-audit/internal/audit"
	"gw-audit/internal/config"
	"gw-audit/internal/domain"
	"gw-audit/internal/google"
	"gw-audit/internal/groupaudit"
	"gw-audit/internal/metrics"
)

// Providers are the Workspace collaborators of both audits. Sheets and Gmail
// are only needed by the sheets sink and the gmail notifier.
type Providers struct {
	Directory domain.DirectoryProvider
	Licenses  domain.LicenseProvider
	Reports   domain.ReportsProvider
	Groups    domain.GroupProvider
	Transfers domain.TransferProvider
	Sheets    *sheets.Service
	Gmail     *gmail.Service
	// GCSOptions authenticate the GCS sink.
	GCSOptions []option.ClientOption
}

// GoogleProviders builds the real API adapters from the configured service
// account.
func GoogleProviders(ctx context.Context, cfg *config.Config) (Providers, error) {
	opts, err := google.ClientOptions(ctx, google.Credentials{
		KeyFile: cfg.Google.CredentialsFile,
		Subject: cfg.Google.AdminSubject,
	})
	if err != nil {
		return Providers{}, err
	}
	svc, err := google.NewServices(ctx, opts...)
	if err != nil {
		return Providers{}, err
	}
	return Providers{
		Directory:  google.NewDirectory(svc.Directory),
		Licenses:   google.NewLicensing(svc.Licensing),
		Reports:    google.NewReports(svc.Reports),
		Groups:     google.NewGroups(svc.Directory),
		Transfers:  google.NewTransfers(svc.Transfer),
		Sheets:     svc.Sheets,
		Gmail:      svc.Gmail,
		GCSOptions: []option.ClientOption{option.WithAuthCredentialsFile(option.ServiceAccount, cfg.Google.CredentialsFile)},
	}, nil
}

// Options tune Build.
type Options struct {
	Clock   quartz.Clock
	Metrics *metrics.Metrics
	// Stdout receives the console sink output.
	Stdout io.Writer
}

// App holds the wired services. Close releases the checkpoint store and
// object storage clients.
type App struct {
	Config  *config.Config
	Users   *audit.Service
	Groups  *groupaudit.Service
	Metrics *metrics.Metrics
	KV      domain.KVStore

	closers []func() error
}

// New builds an App against the live Google APIs.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	prov, err := GoogleProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, prov, logger, opts)
}

// Build wires both services from cfg and prov.
func Build(ctx context.Context, cfg *config.Config, prov Providers, logger *slog.Logger, opts Options) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	a := &App{Config: cfg, Metrics: opts.Metrics}

	kv, closeKV, err := OpenKV(ctx, cfg.Checkpoint, logger)
	if err != nil {
		return nil, err
	}
	a.KV = kv
	a.closers = append(a.closers, closeKV)

	sinks, closeSinks, err := buildSinks(ctx, cfg.Output, prov, opts)
	a.closers = append(a.closers, closeSinks...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	notifier, err := buildNotifier(cfg.Notify, prov, opts.Clock)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	notify := cfg.Notify.Enabled && notifier != nil

	u := cfg.Users
	mode := u.Mode()
	a.Users = audit.NewService(audit.Settings{
		CustomerID:   cfg.Google.CustomerID,
		ProductID:    u.ProductID,
		InactiveDays: u.InactiveDays,
		Retention:    cfg.RetentionWindow(),
		Rules: audit.ExclusionRules{
			ExcludeAdmins:    u.ExcludeAdmins,
			OUPrefixes:       u.ExcludeOUs,
			ExcludeSuspended: mode.Suspends(),
		},
		Executor: audit.ExecutorConfig{
			Mode:           mode,
			DryRun:         u.DryRun,
			SafetyCap:      u.SafetyCap,
			ProductID:      u.ProductID,
			TargetSKU:      u.TargetSKU,
			ReplacementSKU: u.ReplacementSKU,
			TransferTo:     u.TransferTo,
		},
		PageDelay:   u.PageDelay,
		ActionDelay: u.ActionDelay,
		Notify:      notify,
		Recipients:  cfg.Notify.Recipients,
	}, audit.Deps{
		Directory: prov.Directory,
		Licenses:  prov.Licenses,
		Reports:   prov.Reports,
		Transfers: prov.Transfers,
		Output:    sinks,
		Notifier:  notifier,
		Clock:     opts.Clock,
		Metrics:   opts.Metrics,
		Logger:    logger.With("component", "users_audit"),
	})

	a.Groups = groupaudit.NewService(groupaudit.Settings{
		BatchSize:  cfg.Groups.BatchSize,
		TimeBudget: cfg.Groups.TimeBudget,
		PageDelay:  cfg.Groups.PageDelay,
		Notify:     notify,
		Recipients: cfg.Notify.Recipients,
	}, groupaudit.Deps{
		Groups:   prov.Groups,
		KV:       kv,
		Output:   sinks,
		Notifier: notifier,
		Clock:    opts.Clock,
		Metrics:  opts.Metrics,
		Logger:   logger.With("component", "groups_audit"),
	})
	return a, nil
}

// Close releases every resource opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}
