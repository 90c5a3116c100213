package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gw-audit/internal/app"
	"gw-audit/internal/config"
	"gw-audit/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Exit codes. Configuration errors also exit with exitError.
const (
	exitOK    = 0
	exitError = 1
)

// buildApp wires the audit services. Tests replace it to run against fakes.
var buildApp = app.New

// Execute runs the CLI.
func Execute() int {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var cfgErr *domain.ConfigError
		errors.As(err, &cfgErr)
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if cfgErr != nil && cfgErr.Field != "" {
				errObj["field"] = cfgErr.Field
			}
			_ = printJSON(stdout, errObj)
		} else {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitError
	}
	return exitOK
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	output     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "gwaudit",
		Short: "Google Workspace license and group hygiene audits",
		Long: `gwaudit finds licensed Google Workspace users who have not signed in for a
configurable number of days and optionally suspends, archives or relicenses
them. It also finds groups without owners, in resumable batches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(g.output)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file (overridden by GWAUDIT_* env vars)")
	pf.StringVar(&g.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")
	pf.StringVarP(&g.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format override (text, json)")

	rootCmd.AddCommand(newUsersCmd(&g))
	rootCmd.AddCommand(newGroupsCmd(&g))
	rootCmd.AddCommand(newCheckpointCmd(&g))
	rootCmd.AddCommand(newServeCmd(&g))
	rootCmd.AddCommand(newConfigCmd(&g))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// loadConfig reads the dotenv file and the config, applies the logging flag
// overrides and returns the config with a logger built from it. Config
// warnings are logged once the logger exists.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(g.envFile); err != nil {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.SlogLevel())
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return cfg, logger, nil
}

// openApp loads the config and wires the services.
func (g *globalFlags) openApp(cmd *cobra.Command, mutate func(*config.Config) error) (*app.App, *slog.Logger, error) {
	cfg, logger, err := g.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		if err := mutate(cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	// Console tables move to stderr so that JSON output stays parseable.
	console := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		console = cmd.ErrOrStderr()
	}
	a, err := buildApp(cmd.Context(), cfg, logger, app.Options{Stdout: console})
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
