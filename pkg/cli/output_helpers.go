package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gw-audit/internal/domain"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFields renders name/value pairs as a two-column table.
func printFields(w io.Writer, title string, fields []domain.SummaryField) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	for _, f := range fields {
		tw.AppendRow(table.Row{f.Name, f.Value})
	}
	tw.Render()
}

// printResult writes v as JSON, or fields as a table.
func printResult(cmd *cobra.Command, v any, title string, fields []domain.SummaryField) error {
	if getOutputFormat(cmd) == "json" {
		return printJSON(cmd.OutOrStdout(), v)
	}
	printFields(cmd.OutOrStdout(), title, fields)
	return nil
}
