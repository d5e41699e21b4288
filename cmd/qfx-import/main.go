package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// errCancelled is returned when the user declines the upload prompt.
var errCancelled = errors.New("import cancelled")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qfx-import",
		Short: "Import QFX bank exports into the finance tracker",
		Long: `qfx-import parses QFX/OFX statement files, shows a preview of the transactions found,
and uploads them to the finance tracker API in batches. Re-importing a file is safe:
transactions already stored are skipped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (default $XDG_CONFIG_HOME/qfx-import/config.toml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log each batch")

	root.AddCommand(newUploadCmd(), newConfigCmd())
	return root
}

func configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	p, err := defaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return p, nil
}
