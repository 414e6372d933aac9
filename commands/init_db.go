package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/eduaccess/gdrive-access-sync/roster"
)

var InitDBCmd = InitDB{
	command: command{
		debug: false,
	},

	mock: "",
}

type InitDB struct {
	command
	mock string
}

func (cmd *InitDB) Name() string {
	return "init-db"
}

func (cmd *InitDB) Description() string {
	return "Creates the roster database tables and optionally loads mock data"
}

func (cmd *InitDB) Usage() string {
	return "[--mock <file>]"
}

func (cmd *InitDB) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] init-db [--mock <file>]\n", APP)
	fmt.Println()
	fmt.Println("  Creates the users, courses, accesses and files tables in the roster database (if they do not")
	fmt.Println("  already exist) and loads users, courses and enrolments from a JSON mock data file. If the mock")
	fmt.Println("  data does not include any enrolments, every user is enrolled in every course.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %s init-db\n", APP)
	fmt.Printf("    %s init-db --mock %v\n", APP, DEFAULT_MOCK)
	fmt.Println()
}

func (cmd *InitDB) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("init-db")

	flagset.StringVar(&cmd.mock, "mock", cmd.mock, "JSON file with mock users, courses, files and enrolments")

	return flagset
}

func (cmd *InitDB) Execute(args ...any) error {
	options := args[0].(*Options)
	ctx := context.Background()

	cfg, err := cmd.configure(options)
	if err != nil {
		return err
	}

	store := roster.NewStore(cfg.DatabasePath)

	if err := store.CreateTables(ctx); err != nil {
		return err
	}

	infof("initialised roster database %v", cfg.DatabasePath)

	if strings.TrimSpace(cmd.mock) == "" {
		return nil
	}

	f, err := os.Open(cmd.mock)
	if err != nil {
		return fmt.Errorf("unable to open mock data file (%w)", err)
	}

	defer f.Close()

	if err := store.LoadMockData(ctx, f); err != nil {
		return err
	}

	infof("loaded mock data from %v", cmd.mock)

	return nil
}
