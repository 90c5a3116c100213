package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-audit/internal/config"
	"gw-audit/internal/domain"
	"gw-audit/internal/kvstore"
	"gw-audit/internal/report"
	"gw-audit/internal/testutil"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Google.CredentialsFile = "/secrets/sa.json"
	cfg.Google.AdminSubject = "admin@example.com"
	cfg.Google.CustomerID = "C0123abc"
	cfg.Users.PageDelay = 0
	cfg.Users.ActionDelay = 0
	cfg.Groups.PageDelay = 0
	cfg.Checkpoint = config.CheckpointConfig{Backend: "memory"}
	cfg.Output.Sinks = []string{"console", "csv"}
	cfg.Output.CSVDir = t.TempDir()
	return cfg
}

func testProviders() Providers {
	stale := testNow.AddDate(0, 0, -400)
	users := []domain.User{
		{ID: "1", Email: "gone@example.com", FullName: "Gone Suspended", Suspended: true, LastLogin: &stale},
		{ID: "2", Email: "idle@example.com", FullName: "Idle User", LastLogin: &stale},
	}
	var assignments []domain.LicenseAssignment
	for _, u := range users {
		assignments = append(assignments, domain.LicenseAssignment{
			UserEmail: u.Email, ProductID: "Google-Apps", SKUID: "1010020027", SKUName: "Business Starter",
		})
	}
	return Providers{
		Directory: testutil.UsersDirectory(0, users...),
		Licenses:  testutil.AssignmentLicenses(0, assignments...),
		Reports:   &testutil.MockReports{},
		Groups: &testutil.MockGroups{
			ListGroupsFn: func(context.Context, string) (domain.GroupPage, error) {
				return domain.GroupPage{Groups: []domain.Group{
					{ID: "g1", Email: "orphans@example.com", Name: "Orphans", DirectMembers: 4},
				}}, nil
			},
			ListMembersFn: func(context.Context, string, string, string) (domain.MemberPage, error) {
				return domain.MemberPage{}, nil
			},
		},
		Transfers: &testutil.MockTransfers{},
	}
}

func build(t *testing.T, cfg *config.Config, prov Providers) (*App, *bytes.Buffer) {
	t.Helper()
	clk := quartz.NewMock(t)
	clk.Set(testNow).MustWait(context.Background())
	var stdout bytes.Buffer
	a, err := Build(context.Background(), cfg, prov, discardLogger(), Options{Clock: clk, Stdout: &stdout})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a, &stdout
}

func TestBuild_UsersReportMode(t *testing.T) {
	cfg := testConfig(t)
	a, stdout := build(t, cfg, testProviders())

	res, err := a.Users.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Inactive)
	assert.Equal(t, 0, res.Summary.Excluded, "suspended users are only excluded by suspending modes")
	assert.Contains(t, stdout.String(), "idle@example.com")
	require.Len(t, res.Locations, 1, "the console sink reports no location")
	assert.FileExists(t, res.Locations[0])
	assert.Equal(t, cfg.Output.CSVDir, filepath.Dir(res.Locations[0]))
}

func TestBuild_SuspendModeExcludesSuspended(t *testing.T) {
	cfg := testConfig(t)
	cfg.Users.Action = string(domain.ModeSuspend)
	prov := testProviders()
	a, _ := build(t, cfg, prov)

	res, err := a.Users.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Excluded)
	assert.Equal(t, 1, res.Summary.Simulated)
	assert.Empty(t, prov.Directory.(*testutil.MockDirectory).Suspended, "dry run is the default")
}

func TestBuild_GroupsCycle(t *testing.T) {
	cfg := testConfig(t)
	a, stdout := build(t, cfg, testProviders())

	res, err := a.Groups.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Findings)
	assert.Contains(t, stdout.String(), "orphans@example.com")
	assert.False(t, a.Groups.Checkpoints().Load(context.Background()).InCycle())
	assert.IsType(t, &kvstore.Memory{}, a.KV)
}

func TestBuild_MissingClients(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		field  string
	}{
		{"sheets sink", func(c *config.Config) { c.Output.Sinks = []string{"sheets"} }, "output.sinks"},
		{"gmail notifier", func(c *config.Config) {
			c.Notify.Enabled = true
			c.Notify.Via = "gmail"
		}, "notify.via"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(cfg)
			_, err := Build(context.Background(), cfg, testProviders(), discardLogger(), Options{Stdout: &bytes.Buffer{}})
			var cfgErr *domain.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestBuildNotifier(t *testing.T) {
	clk := quartz.NewMock(t)

	n, err := buildNotifier(config.NotifyConfig{Via: "none"}, Providers{}, clk)
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = buildNotifier(config.NotifyConfig{Via: "smtp", SMTPAddr: "relay:25", From: "audit@example.com"}, Providers{}, clk)
	require.NoError(t, err)
	assert.IsType(t, &report.SMTP{}, n)
}

func TestBuildSinks_Order(t *testing.T) {
	cfg := config.OutputConfig{
		Sinks:      []string{"csv", "s3", "console"},
		CSVDir:     t.TempDir(),
		S3Bucket:   "audit",
		S3KeyID:    "AKIA",
		S3Secret:   "secret",
		S3Endpoint: "https://objects.example.com",
	}
	sinks, closers, err := buildSinks(context.Background(), cfg, Providers{}, Options{Clock: quartz.NewMock(t), Stdout: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Empty(t, closers)
	require.Len(t, sinks, 3)
	assert.IsType(t, &report.CSVDir{}, sinks[0])
	assert.IsType(t, &report.ObjectStore{}, sinks[1])
	assert.IsType(t, &report.Console{}, sinks[2])
}

func TestOpenKV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, cfg := range []config.CheckpointConfig{
		{Backend: "memory"},
		{Backend: "file", Path: filepath.Join(dir, "state", "checkpoints.json")},
		{Backend: "sqlite", Path: filepath.Join(dir, "state", "checkpoints.db")},
	} {
		t.Run(cfg.Backend, func(t *testing.T) {
			kv, closeKV, err := OpenKV(ctx, cfg, discardLogger())
			require.NoError(t, err)

			require.NoError(t, kv.Set(ctx, "groups.next_index", "500"))
			v, ok, err := kv.Get(ctx, "groups.next_index")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "500", v)
			require.NoError(t, closeKV())

			if cfg.Path != "" {
				_, err := os.Stat(cfg.Path)
				assert.NoError(t, err)
			}
		})
	}

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := OpenKV(ctx, config.CheckpointConfig{Backend: "redis"}, discardLogger())
		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})
}
