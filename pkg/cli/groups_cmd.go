package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gw-audit/internal/config"
	"gw-audit/internal/domain"
	"gw-audit/internal/groupaudit"
	"gw-audit/internal/report"
)

func newGroupsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Groups without owners audit",
	}
	cmd.AddCommand(newGroupsAuditCmd(g))
	return cmd
}

func newGroupsAuditCmd(g *globalFlags) *cobra.Command {
	var (
		batchSize int
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the next batch of groups for owners",
		Long: `Checks the next batch of groups for owners and saves progress in the
checkpoint store. The cycle's findings are written and the checkpoint
cleared once the last group has been checked. With --all, batches run back
to back until the cycle completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := g.openApp(cmd, func(cfg *config.Config) error {
				if cmd.Flags().Changed("batch-size") {
					cfg.Groups.BatchSize = batchSize
				}
				return nil
			})
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			for {
				res, err := a.Groups.Run(cmd.Context())
				if err != nil {
					return err
				}
				if res.OutputErr != nil {
					logger.Warn("groups batch finished but some output failed", "error", res.OutputErr)
				}
				// A kept checkpoint after a failed flush would loop forever.
				if !all || res.Completed || res.Processed == 0 {
					return printResult(cmd, newGroupsOutput(res), "Groups audit", groupsFields(res))
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Groups checked per batch (overrides groups.batch_size)")
	cmd.Flags().BoolVar(&all, "all", false, "Run batches until the cycle completes")
	return cmd
}

type groupsOutput struct {
	*groupaudit.RunResult
	OutputError string `json:"output_error,omitempty"`
}

func newGroupsOutput(res *groupaudit.RunResult) groupsOutput {
	out := groupsOutput{RunResult: res}
	if res.OutputErr != nil {
		out.OutputError = res.OutputErr.Error()
	}
	return out
}

func groupsFields(res *groupaudit.RunResult) []domain.SummaryField {
	fields := []domain.SummaryField{
		{Name: "Run ID", Value: res.RunID},
		{Name: "New cycle", Value: strconv.FormatBool(res.NewCycle)},
		{Name: "Progress", Value: fmt.Sprintf("%s / %s", report.Count(res.NextIndex), report.Count(res.Total))},
		{Name: "Checked this run", Value: report.Count(res.Processed)},
		{Name: "Flagged this run", Value: report.Count(res.Flagged)},
		{Name: "Findings in cycle", Value: report.Count(res.Findings)},
		{Name: "Cycle completed", Value: strconv.FormatBool(res.Completed)},
	}
	if res.TimeBoxed {
		fields = append(fields, domain.SummaryField{Name: "Stopped", Value: "time budget reached"})
	}
	if res.Partial {
		fields = append(fields, domain.SummaryField{Name: "Warning", Value: "group listing ended early, the cycle is incomplete"})
	}
	for _, loc := range res.Locations {
		fields = append(fields, domain.SummaryField{Name: "Report", Value: loc})
	}
	if res.OutputErr != nil {
		fields = append(fields, domain.SummaryField{Name: "Output error", Value: res.OutputErr.Error()})
	}
	return fields
}
