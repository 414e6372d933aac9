package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uhppoted/uhppoted-lib/log"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/config"
	"github.com/eduaccess/gdrive-access-sync/gdrive"
	"github.com/eduaccess/gdrive-access-sync/roster"
	"github.com/eduaccess/gdrive-access-sync/runner"
)

const APP = "gdrive-access-sync"
const LOG_TAG = "commands"

const (
	DRIVE  = "https://www.googleapis.com/auth/drive"
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
)

// Options holds the global command line options.
type Options struct {
	Config string
	Debug  bool
	DryRun bool
}

type command struct {
	debug bool
}

// configure loads the configuration from the --config file (or the default
// configuration file, if it exists) and applies the global options.
func (c *command) configure(options *Options) (*config.Config, error) {
	c.debug = options.Debug
	log.SetDebug(options.Debug)

	path := options.Config
	if path == "" {
		if _, err := os.Stat(DEFAULT_CONFIG); err == nil {
			path = DEFAULT_CONFIG
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if options.DryRun {
		cfg.DryRun = true
	}

	debugf("configuration %v  database:%v  credentials:%v  dry-run:%v  workers:%v", path, cfg.DatabasePath, cfg.CredentialsPath, cfg.DryRun, cfg.Workers)

	return cfg, nil
}

func (c *command) flagset(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

// provider opens the storage provider used by sync, compare and export.
var provider = func(ctx context.Context, cfg *config.Config) (gdrive.Provider, error) {
	drive, err := newDrive(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return drive, nil
}

func newDrive(ctx context.Context, cfg *config.Config) (*gdrive.Drive, error) {
	client, err := authorize(ctx, cfg, DRIVE)
	if err != nil {
		return nil, fmt.Errorf("Google Drive authentication/authorization error (%w)", err)
	}

	return gdrive.NewDrive(ctx, client)
}

func newRunner(cfg *config.Config, provider gdrive.Provider) *runner.Runner {
	store := roster.NewStore(cfg.DatabasePath)

	return runner.NewRunner(store, provider, runner.Options{
		DryRun:      cfg.DryRun,
		Workers:     cfg.Workers,
		Retry:       retry(cfg),
		Discovery:   cfg.Discovery.Enabled,
		Root:        cfg.Discovery.Root,
		CopyProtect: cfg.CopyProtect,
	})
}

func retry(cfg *config.Config) gdrive.Retry {
	return gdrive.Retry{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Timeout:     cfg.CallTimeout,
	}
}

// write creates a file by writing to a temporary file and renaming it, so that
// a failed write never leaves a partial file behind. An empty or '-' file
// writes to stdout.
func write(file string, f func(w io.Writer) error) error {
	if file == "" || file == "-" {
		return f(os.Stdout)
	}

	tmp, err := os.CreateTemp(os.TempDir(), APP)
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := f(tmp); err != nil {
		return err
	}

	tmp.Close()

	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	return rename(tmp.Name(), file)
}

// rename falls back to copy-and-delete when the temporary file is on a
// different filesystem.
func rename(from, to string) error {
	if err := os.Rename(from, to); err == nil {
		return nil
	}

	b, err := os.ReadFile(from)
	if err != nil {
		return err
	}

	return os.WriteFile(to, b, 0660)
}

func timestamped(file string) string {
	return strings.ReplaceAll(file, "{timestamp}", time.Now().Format("2006-01-02T150405"))
}

func printPlan(plan acl.Plan) {
	for _, p := range plan.Revocations {
		infof("revoke  %v", p)
	}

	for _, p := range plan.Grants {
		infof("grant   %v", p)
	}
}

func helpOptions(flagset *flag.FlagSet) {
	count := 0
	flag.VisitAll(func(f *flag.Flag) {
		count++
	})

	flagset.VisitAll(func(f *flag.Flag) {
		fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
	})

	if count > 0 {
		fmt.Println()
		fmt.Println("  Options:")
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
		})
	}
}

func debugf(format string, args ...any) {
	log.Debugf("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	log.Infof("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Warnf("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}
