package commands

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/eduaccess/gdrive-access-sync/audit"
	"github.com/eduaccess/gdrive-access-sync/config"
	"github.com/eduaccess/gdrive-access-sync/runner"
)

var SyncCmd = Sync{
	command: command{
		debug: false,
	},

	dryrun: false,
	nolog:  false,
	report: "",
}

type Sync struct {
	command
	dryrun bool
	nolog  bool
	report string
}

func (cmd *Sync) Name() string {
	return "sync"
}

func (cmd *Sync) Description() string {
	return "Synchronises Google Drive file permissions with the course roster"
}

func (cmd *Sync) Usage() string {
	return "[--dry-run] [--no-log] [--report <file>]"
}

func (cmd *Sync) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] [--dry-run] sync [options]\n", APP)
	fmt.Println()
	fmt.Println("  Grants and revokes Google Drive permissions on course files so that they match the roster")
	fmt.Println("  database. 'sync' is the default command.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %s --config /usr/local/etc/gdrive-access-sync/gdrive-access-sync.yaml\n", APP)
	fmt.Printf("    %s sync --dry-run --report sync.tsv\n", APP)
	fmt.Println()
}

func (cmd *Sync) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("sync")

	flagset.BoolVar(&cmd.dryrun, "dry-run", cmd.dryrun, "Computes and reports the changes without modifying Google Drive")
	flagset.BoolVar(&cmd.nolog, "no-log", cmd.nolog, "Disables writing a summary to the log worksheet")
	flagset.StringVar(&cmd.report, "report", cmd.report, "TSV file for the per-operation report. Overrides 'report_file'")

	return flagset
}

func (cmd *Sync) Execute(args ...any) error {
	options := *args[0].(*Options)
	options.DryRun = options.DryRun || cmd.dryrun
	ctx := context.Background()

	cfg, err := cmd.configure(&options)
	if err != nil {
		return err
	}

	release, err := acquire(cfg.Lockfile)
	if err != nil {
		return err
	}

	defer release()

	drive, err := provider(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := newRunner(cfg, drive).Run(ctx)

	if result != nil && result.Report != nil {
		for _, r := range result.Report.Failed() {
			warnf("%v", r)
		}
	}

	if err == nil {
		summary := result.Report.Summary()
		infof("%v  %v", result.RunID, summary)

		if file := timestamped(cmd.reportFile(cfg)); file != "" {
			if err := write(file, result.Report.ToTSV); err != nil {
				warnf("error writing report to %v (%v)", file, err)
			} else {
				infof("report written to %v", file)
			}
		}
	}

	cmd.log(ctx, cfg, result, err)

	return err
}

func (cmd *Sync) reportFile(cfg *config.Config) string {
	if cmd.report != "" {
		return cmd.report
	}

	return cfg.ReportFile
}

// log appends a summary of the run to the log worksheet. Failing to update the
// log sheet does not fail the run.
func (cmd *Sync) log(ctx context.Context, cfg *config.Config, result *runner.Result, err error) {
	if cmd.nolog || cfg.LogSheet.URL == "" || result == nil {
		return
	}

	client, e := authorize(ctx, cfg, SHEETS)
	if e != nil {
		warnf("log sheet authorisation error (%v)", e)
		return
	}

	sheet, e := audit.NewSheetLog(ctx, client, cfg.LogSheet.URL, cfg.LogSheet.Range, cfg.LogSheet.Retention)
	if e != nil {
		warnf("%v", e)
		return
	}

	entry := logEntry(result, cfg.DryRun, err, time.Now())

	if e := sheet.Append(ctx, entry); e != nil {
		warnf("%v", e)
	} else if e := sheet.Prune(ctx, time.Now()); e != nil {
		warnf("%v", e)
	}
}

func logEntry(result *runner.Result, dryRun bool, err error, now time.Time) audit.Entry {
	entry := audit.Entry{
		Timestamp: now,
		RunID:     result.RunID,
		Status:    result.State.String(),
		DryRun:    dryRun,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	if result.Report != nil {
		summary := result.Report.Summary()

		entry.Granted = summary.Granted
		entry.Revoked = summary.Revoked
		entry.Skipped = summary.Skipped
		entry.Failed = summary.Failed()
	}

	return entry
}
