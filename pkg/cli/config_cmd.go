package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gw-audit/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigValidateCmd(g))

	return cmd
}

func newConfigShowCmd(g *globalFlags) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the configuration after defaults, file and environment are merged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if !reveal {
				cfg = maskConfig(cfg)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show sensitive values unmasked")

	return cmd
}

func newConfigValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without calling any API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				warnings := cfg.Warnings
				if warnings == nil {
					warnings = []string{}
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"status":   "ok",
					"warnings": warnings,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%d warnings).\n", len(cfg.Warnings))
			return nil
		},
	}
}

// maskConfig returns a copy of the config with sensitive fields masked.
func maskConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Output.S3Secret = maskSecret(cfg.Output.S3Secret)
	masked.Notify.SMTPPassword = maskSecret(cfg.Notify.SMTPPassword)
	masked.APIToken = maskSecret(cfg.APIToken)
	return &masked
}

// maskSecret masks a sensitive string, showing first 4 and last 4 chars.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
