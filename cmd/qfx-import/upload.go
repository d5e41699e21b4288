package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"finance-tracker-backend/internal/config"
	"finance-tracker-backend/internal/importer"
	"finance-tracker-backend/internal/logger"
	"finance-tracker-backend/internal/qfx"
)

const previewRows = 20

var defaultConfigPath = config.DefaultClientConfigPath

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Parse a QFX file and upload its transactions",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	cmd.Flags().String("token", "", "API token (overrides config)")
	cmd.Flags().String("api-url", "", "API base URL (overrides config)")
	cmd.Flags().Int("batch-size", 0, "records per request (overrides config)")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.LoadClientConfig(path)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("token"); v != "" {
		cfg.Token = v
	}
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.BatchSize = v
	}
	if cfg.Token == "" {
		return fmt.Errorf("no API token: pass --token or run 'qfx-import config set token <value>'")
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	records, recordErrs := qfx.Parse(string(raw))
	warn := color.New(color.FgYellow)
	for _, e := range recordErrs {
		warn.Fprintf(out, "Skipping %s\n", e.Error())
	}
	if len(records) == 0 {
		return fmt.Errorf("no valid transactions found in %s", args[0])
	}

	printPreview(out, records)

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("Upload %d transactions to %s?", len(records), cfg.APIURL))
		if err != nil {
			return err
		}
		if !ok {
			return errCancelled
		}
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	client := importer.NewClient(cfg.APIURL, cfg.Token,
		importer.WithBatchSize(cfg.BatchSize),
		importer.WithLogger(logger.WithLevel(logger.NewConsole(cmd.ErrOrStderr()), level)),
	)

	res, err := client.Upload(cmd.Context(), qfx.MapAll(records))
	if err != nil {
		return err
	}
	printSummary(out, res, len(recordErrs))
	if !res.OK() {
		return fmt.Errorf("%d of %d batches failed", len(res.BatchErrors), res.Batches)
	}
	return nil
}

func printPreview(w io.Writer, records []qfx.Record) {
	color.New(color.Bold).Fprintf(w, "\nFound %d transactions\n\n", len(records))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tNAME\tFITID\tTYPE\tMEMO")
	for i, r := range records {
		if i == previewRows {
			fmt.Fprintf(tw, "...\t\t%d more\t\t\t\n", len(records)-previewRows)
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Date, formatCents(r.Amount), truncate(r.Name, 40), r.FITID, r.Type, truncate(r.Memo, 30))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, res *importer.Result, skipped int) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	green.Fprintf(w, "Uploaded %d transactions (%d new, %d already imported)\n",
		res.Succeeded, res.Inserted, res.Succeeded-res.Inserted)
	if skipped > 0 {
		color.New(color.FgYellow).Fprintf(w, "Skipped %d malformed records\n", skipped)
	}
	if res.Failed > 0 {
		red.Fprintf(w, "Failed to upload %d transactions\n", res.Failed)
		for _, be := range res.BatchErrors {
			red.Fprintf(w, "  batch %d (%d records): %s\n", be.Batch, be.Count, be.Message)
		}
	}
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s Proceed? [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
