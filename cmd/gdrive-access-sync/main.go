package main

import (
	"flag"
	"fmt"
	"os"

	uhppoted "github.com/uhppoted/uhppoted-lib/command"

	"github.com/eduaccess/gdrive-access-sync/commands"
)

var cli = []uhppoted.Command{
	&commands.VersionCmd,
	&commands.AuthoriseCmd,
	&commands.SyncCmd,
	&commands.CompareCmd,
	&commands.ExportCmd,
	&commands.ProtectCmd,
	&commands.InitDBCmd,
}

var options = commands.Options{
	Config: "",
	Debug:  false,
	DryRun: false,
}

var help = uhppoted.NewHelp(commands.APP, cli, &commands.SyncCmd)

func main() {
	flag.StringVar(&options.Config, "config", options.Config, "Configuration file. Defaults to "+commands.DEFAULT_CONFIG+" if it exists")
	flag.BoolVar(&options.DryRun, "dry-run", options.DryRun, "Computes and reports the changes without modifying Google Drive")
	flag.BoolVar(&options.Debug, "debug", options.Debug, "Enable debugging information")
	flag.Parse()

	cmd, err := uhppoted.Parse(cli, &commands.SyncCmd, help)
	if err != nil {
		fmt.Printf("\nError parsing command line: %v\n\n", err)
		os.Exit(1)
	}

	if cmd == nil {
		help.Execute(&options)
		os.Exit(1)
	}

	if err = cmd.Execute(&options); err != nil {
		fmt.Fprintf(os.Stderr, "\n   ERROR: %v\n\n", err)
		os.Exit(1)
	}
}
