package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gw-audit/internal/audit"
	"gw-audit/internal/config"
	"gw-audit/internal/domain"
)

func newUsersCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inactive licensed users audit",
	}
	cmd.AddCommand(newUsersAuditCmd(g))
	return cmd
}

type usersAuditFlags struct {
	dryRun    bool
	mode      string
	safetyCap int
	yes       bool
}

func newUsersAuditCmd(g *globalFlags) *cobra.Command {
	var f usersAuditFlags
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Find licensed users inactive past the cutoff and apply the configured action",
		Long: `Lists every licensed user whose last sign-in is older than the cutoff and
applies the configured action to those that are not excluded. Dry run is on
unless disabled in the config or with --dry-run=false; a live run of a
mutating mode asks for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := g.openApp(cmd, func(cfg *config.Config) error {
				return f.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			u := a.Config.Users
			if u.Mode().Mutates() && !u.DryRun {
				if err := confirmLive(cmd, u, f.yes); err != nil {
					return err
				}
			}

			res, err := a.Users.Run(cmd.Context())
			if err != nil {
				return err
			}
			if res.OutputErr != nil {
				logger.Warn("audit finished but some output failed", "error", res.OutputErr)
			}
			return printResult(cmd, newUsersOutput(res), "Inactive user audit", usersFields(res))
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", true, "Simulate actions without calling mutating APIs")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Action mode override (report, suspend, archive, suspend_relicense)")
	cmd.Flags().IntVar(&f.safetyCap, "safety-cap", 0, "Maximum users acted on in this run (-1 disables the cap)")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Skip the confirmation prompt of a live run")
	return cmd
}

// apply overlays the flags the user set onto cfg.
func (f *usersAuditFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("dry-run") {
		cfg.Users.DryRun = f.dryRun
	}
	if cmd.Flags().Changed("mode") {
		mode, err := domain.ParseActionMode(strings.ToLower(f.mode))
		if err != nil {
			return err
		}
		cfg.Users.Action = string(mode)
	}
	if cmd.Flags().Changed("safety-cap") {
		cfg.Users.SafetyCap = f.safetyCap
	}
	return nil
}

// confirmLive asks the operator to type "yes" before a live mutating run.
// Without a terminal on stdin, only --yes proceeds.
func confirmLive(cmd *cobra.Command, u config.UsersConfig, yes bool) error {
	if yes {
		return nil
	}
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return fmt.Errorf("live %s run refused: stdin is not a terminal, pass --yes to confirm", u.Action)
	}
	limit := "every inactive user"
	if u.SafetyCap >= 0 {
		limit = fmt.Sprintf("up to %d users", u.SafetyCap)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "This will %s %s. Type 'yes' to continue: ", u.Action, limit)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if strings.TrimSpace(line) != "yes" {
		return fmt.Errorf("live %s run aborted", u.Action)
	}
	return nil
}

type usersOutput struct {
	*audit.RunResult
	Actions     []domain.ActionRecord `json:"actions,omitempty"`
	OutputError string                `json:"output_error,omitempty"`
}

func newUsersOutput(res *audit.RunResult) usersOutput {
	out := usersOutput{RunResult: res, Actions: res.Actions}
	if res.OutputErr != nil {
		out.OutputError = res.OutputErr.Error()
	}
	return out
}

func usersFields(res *audit.RunResult) []domain.SummaryField {
	fields := []domain.SummaryField{
		{Name: "Run ID", Value: res.RunID},
		{Name: "Cutoff", Value: res.Cutoff.Format(time.DateOnly)},
	}
	fields = append(fields, res.Summary.Fields(res.Mode, res.DryRun)...)
	for _, loc := range res.Locations {
		fields = append(fields, domain.SummaryField{Name: "Report", Value: loc})
	}
	if res.OutputErr != nil {
		fields = append(fields, domain.SummaryField{Name: "Output error", Value: res.OutputErr.Error()})
	}
	return fields
}
