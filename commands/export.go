package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/gdrive"
	"github.com/eduaccess/gdrive-access-sync/roster"
)

var ExportCmd = Export{
	command: command{
		debug: false,
	},

	file:    "",
	current: false,
}

type Export struct {
	command
	file    string
	current bool
}

func (cmd *Export) Name() string {
	return "export"
}

func (cmd *Export) Description() string {
	return "Writes the permissions implied by the roster (or the current Google Drive permissions) to a TSV file"
}

func (cmd *Export) Usage() string {
	return "[--current] [--file <file>]"
}

func (cmd *Export) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] export [options]\n", APP)
	fmt.Println()
	fmt.Println("  Writes the file permissions implied by the roster as a TSV file (or to the console). With --current,")
	fmt.Println("  writes the permissions currently set on the course files in Google Drive instead.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %s export --file \"roster-{timestamp}.tsv\"\n", APP)
	fmt.Printf("    %s export --current\n", APP)
	fmt.Println()
}

func (cmd *Export) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("export")

	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV file name. Defaults to the console. '{timestamp}' is replaced with the current date and time")
	flagset.BoolVar(&cmd.current, "current", cmd.current, "Exports the current Google Drive permissions rather than the roster permissions")

	return flagset
}

func (cmd *Export) Execute(args ...any) error {
	options := args[0].(*Options)
	ctx := context.Background()

	cfg, err := cmd.configure(options)
	if err != nil {
		return err
	}

	rs, err := roster.NewStore(cfg.DatabasePath).LoadRoster(ctx)
	if err != nil {
		return err
	}

	permissions := acl.Desired(rs).Permissions()

	if cmd.current {
		drive, err := provider(ctx, cfg)
		if err != nil {
			return err
		}

		state, unlisted, report := gdrive.CurrentState(ctx, drive, rs.Files(), gdrive.Options{
			Workers: cfg.Workers,
			Retry:   retry(cfg),
		})

		for _, r := range report.Failed() {
			warnf("%v", r)
		}

		if len(unlisted) > 0 {
			warnf("unable to list permissions for %v file(s)", len(unlisted))
		}

		permissions = state.Permissions()
	}

	file := timestamped(cmd.file)
	if err := write(file, func(w io.Writer) error { return acl.MakeTSV(w, permissions) }); err != nil {
		return fmt.Errorf("error creating TSV file (%w)", err)
	}

	if file != "" && file != "-" {
		infof("exported %v permission(s) to file %v", len(permissions), file)
	}

	return nil
}
