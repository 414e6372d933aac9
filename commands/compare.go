package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/audit"
)

var CompareCmd = Compare{
	command: command{
		debug: false,
	},

	file:   "",
	url:    "",
	report: "Audit!A1:D",
}

type Compare struct {
	command
	file   string
	url    string
	report string
}

func (cmd *Compare) Name() string {
	return "compare"
}

func (cmd *Compare) Description() string {
	return "Lists the permission changes needed to bring Google Drive in line with the roster"
}

func (cmd *Compare) Usage() string {
	return "[--file <file>] [--url <url> --range <range>]"
}

func (cmd *Compare) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] compare [options]\n", APP)
	fmt.Println()
	fmt.Println("  Compares the Google Drive permissions on the course files with the permissions implied by the roster")
	fmt.Println("  and writes the grants and revocations as a TSV file (or to the console). Nothing is changed.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %s compare\n", APP)
	fmt.Printf("    %s compare --file \"compare-{timestamp}.tsv\"\n", APP)
	fmt.Printf(`    %s compare --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" --range "Audit!A1:D"`+"\n", APP)
	fmt.Println()
}

func (cmd *Compare) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("compare")

	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV file for the list of changes. Defaults to the console")
	flagset.StringVar(&cmd.url, "url", cmd.url, "Optional spreadsheet URL for the list of changes")
	flagset.StringVar(&cmd.report, "range", cmd.report, "Spreadsheet range for the list of changes e.g. 'Audit!A1:D'")

	return flagset
}

func (cmd *Compare) Execute(args ...any) error {
	options := args[0].(*Options)
	ctx := context.Background()

	cfg, err := cmd.configure(options)
	if err != nil {
		return err
	}

	// ... check parameters
	if url := strings.TrimSpace(cmd.url); url != "" {
		if _, err := audit.SpreadsheetID(url); err != nil {
			return err
		}

		if strings.TrimSpace(cmd.report) == "" {
			return fmt.Errorf("--range is required with --url")
		}
	}

	drive, err := provider(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := newRunner(cfg, drive).Plan(ctx)
	if err != nil {
		return err
	}

	for _, r := range result.Report.Failed() {
		warnf("%v", r)
	}

	plan := result.Plan
	if cmd.debug {
		printPlan(plan)
	}

	infof("%v  grants:%v  revocations:%v  unlisted:%v", result.RunID, len(plan.Grants), len(plan.Revocations), len(result.Unlisted))

	if err := write(timestamped(cmd.file), func(w io.Writer) error { return acl.PlanToTSV(w, plan) }); err != nil {
		return fmt.Errorf("error writing TSV file (%w)", err)
	}

	if cmd.url != "" {
		client, err := authorize(ctx, cfg, SHEETS)
		if err != nil {
			return fmt.Errorf("Google Sheets authentication/authorization error (%w)", err)
		}

		if err := audit.WritePlan(ctx, client, cmd.url, cmd.report, plan, time.Now()); err != nil {
			return err
		}
	}

	return nil
}
