package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/eduaccess/gdrive-access-sync/gdrive"
	"github.com/eduaccess/gdrive-access-sync/roster"
	"github.com/eduaccess/gdrive-access-sync/runner"
)

var ProtectCmd = Protect{
	command: command{
		debug: false,
	},

	dryrun:    false,
	unprotect: false,
}

type Protect struct {
	command
	dryrun    bool
	unprotect bool
}

func (cmd *Protect) Name() string {
	return "protect"
}

func (cmd *Protect) Description() string {
	return "Restricts copying, printing and downloading of course presentation files to writers"
}

func (cmd *Protect) Usage() string {
	return "[--dry-run] [--unprotect]"
}

func (cmd *Protect) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] protect [--dry-run] [--unprotect]\n", APP)
	fmt.Println()
	fmt.Println("  Sets the Google Drive 'copy requires writer permission' option on every presentation file in the roster")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %s protect\n", APP)
	fmt.Printf("    %s protect --dry-run --unprotect\n", APP)
	fmt.Println()
}

func (cmd *Protect) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("protect")

	flagset.BoolVar(&cmd.dryrun, "dry-run", cmd.dryrun, "Reports the files that would be updated without modifying Google Drive")
	flagset.BoolVar(&cmd.unprotect, "unprotect", cmd.unprotect, "Clears rather than sets copy protection")

	return flagset
}

func (cmd *Protect) Execute(args ...any) error {
	options := *args[0].(*Options)
	options.DryRun = options.DryRun || cmd.dryrun
	ctx := context.Background()

	cfg, err := cmd.configure(&options)
	if err != nil {
		return err
	}

	rs, err := roster.NewStore(cfg.DatabasePath).LoadRoster(ctx)
	if err != nil {
		return err
	}

	drive, err := newDrive(ctx, cfg)
	if err != nil {
		return err
	}

	files := runner.PresentationFiles(rs)
	report := gdrive.Protect(ctx, drive, files, !cmd.unprotect, gdrive.Options{
		DryRun:  cfg.DryRun,
		Workers: cfg.Workers,
		Retry:   retry(cfg),
	})

	summary := report.Summary()
	infof("presentation files:%v  updated:%v  skipped:%v  failed:%v", len(files), summary.Protected, summary.Skipped, summary.ProtectFailed)

	return nil
}
