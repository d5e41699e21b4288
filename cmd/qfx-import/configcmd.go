package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finance-tracker-backend/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted settings",
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting (" + strings.Join(config.ClientKeys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			if err := config.SetClientValue(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], path)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.LoadClientConfig(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:     %s\n", path)
			fmt.Fprintf(out, "api_url:    %s\n", cfg.APIURL)
			fmt.Fprintf(out, "batch_size: %d\n", cfg.BatchSize)
			fmt.Fprintf(out, "token:      %s\n", maskToken(cfg.Token))
			return nil
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) <= 4:
		return "****"
	default:
		return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
	}
}
