package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gw-audit/internal/app"
	"gw-audit/internal/domain"
	"gw-audit/internal/groupaudit"
	"gw-audit/internal/report"
)

func newCheckpointCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset the groups audit checkpoint",
	}
	cmd.AddCommand(newCheckpointShowCmd(g))
	cmd.AddCommand(newCheckpointResetCmd(g))
	return cmd
}

// openCheckpoints opens the checkpoint store without building API clients.
func (g *globalFlags) openCheckpoints(cmd *cobra.Command) (*groupaudit.Checkpoints, func() error, error) {
	cfg, logger, err := g.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	kv, closeKV, err := app.OpenKV(cmd.Context(), cfg.Checkpoint, logger)
	if err != nil {
		return nil, nil, err
	}
	return groupaudit.NewCheckpoints(kv, groupaudit.AuditName, logger), closeKV, nil
}

type checkpointOutput struct {
	Audit     string `json:"audit"`
	InCycle   bool   `json:"in_cycle"`
	NextIndex int    `json:"next_index"`
	Total     int    `json:"total_groups"`
	Findings  int    `json:"findings"`
}

func newCheckpointShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the progress of the current groups audit cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cp, closeKV, err := g.openCheckpoints(cmd)
			if err != nil {
				return err
			}
			defer closeKV() //nolint:errcheck

			st := cp.Load(cmd.Context())
			out := checkpointOutput{
				Audit:     groupaudit.AuditName,
				InCycle:   st.InCycle(),
				NextIndex: st.NextIndex,
				Total:     len(st.Groups),
				Findings:  len(st.Results),
			}
			return printResult(cmd, out, "Checkpoint", []domain.SummaryField{
				{Name: "Audit", Value: out.Audit},
				{Name: "In cycle", Value: strconv.FormatBool(out.InCycle)},
				{Name: "Progress", Value: fmt.Sprintf("%s / %s", report.Count(out.NextIndex), report.Count(out.Total))},
				{Name: "Findings so far", Value: report.Count(out.Findings)},
			})
		},
	}
}

func newCheckpointResetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the current cycle so the next run starts from a fresh listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cp, closeKV, err := g.openCheckpoints(cmd)
			if err != nil {
				return err
			}
			defer closeKV() //nolint:errcheck

			if err := cp.Clear(cmd.Context()); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"audit": groupaudit.AuditName, "status": "reset"})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint for %s audit cleared.\n", groupaudit.AuditName)
			return nil
		},
	}
}
