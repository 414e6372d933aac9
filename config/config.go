// Package config loads the gdrive-access-sync YAML configuration file, applies
// environment variable overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrConfig is returned (wrapped) for a missing, malformed or invalid
// configuration.
var ErrConfig = errors.New("configuration error")

// ENV_PREFIX is the prefix for environment variable overrides, e.g.
// GDRIVE_ACCESS_SYNC_DATABASE_PATH.
const ENV_PREFIX = "GDRIVE_ACCESS_SYNC"

type Config struct {
	CredentialsPath string        `yaml:"credentials_path" envconfig:"CREDENTIALS_PATH" validate:"required"`
	TokenPath       string        `yaml:"token_path"       envconfig:"TOKEN_PATH"`
	Subject         string        `yaml:"subject"          ignored:"true" validate:"omitempty,email"`
	DatabasePath    string        `yaml:"database_path"    envconfig:"DATABASE_PATH" validate:"required"`
	DryRun          bool          `yaml:"dry_run"          envconfig:"DRY_RUN"`
	Workers         int           `yaml:"workers"          ignored:"true" validate:"min=1,max=64"`
	CallTimeout     time.Duration `yaml:"call_timeout"     ignored:"true" validate:"gt=0"`
	Retry           Retry         `yaml:"retry"            ignored:"true"`
	Lockfile        string        `yaml:"lockfile"         ignored:"true"`
	CopyProtect     bool          `yaml:"copy_protect"     ignored:"true"`
	ReportFile      string        `yaml:"report_file"      ignored:"true"`
	Discovery       Discovery     `yaml:"discovery"        ignored:"true"`
	LogSheet        LogSheet      `yaml:"log_sheet"        ignored:"true"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"min=1,max=10"`
	BaseDelay   time.Duration `yaml:"base_delay"   validate:"gte=0"`
	MaxDelay    time.Duration `yaml:"max_delay"    validate:"gtefield=BaseDelay"`
}

// Discovery finds course files by walking <root>/<category>/<sub-category>/<course>
// instead of reading them from the files table.
type Discovery struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root" validate:"required_if=Enabled true"`
}

// LogSheet is the Google Sheets worksheet that records a row per run. Rows
// older than Retention days are pruned.
type LogSheet struct {
	URL       string `yaml:"url"       validate:"omitempty,url,startswith=https://docs.google.com/spreadsheets/d/"`
	Range     string `yaml:"range"     validate:"required,contains=!"`
	Retention int    `yaml:"retention" validate:"min=0"`
}

const (
	_etc = "/usr/local/etc/gdrive-access-sync"
	_var = "/usr/local/var/gdrive-access-sync"
)

func Default() Config {
	return Config{
		CredentialsPath: _etc + "/credentials.json",
		TokenPath:       _var + "/.google/credentials.drive",
		DatabasePath:    _var + "/roster.db",
		Workers:         1,
		CallTimeout:     30 * time.Second,
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		Lockfile: _var + "/gdrive-access-sync.lock",
		Discovery: Discovery{
			Root: "Courses",
		},
		LogSheet: LogSheet{
			Range:     "Log!A1:H",
			Retention: 30,
		},
	}
}

// Load reads the configuration file (if path is not empty) over the defaults,
// applies environment variable overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to read %v (%v)", ErrConfig, path, err)
		}

		if err := cfg.decode(b); err != nil {
			return nil, fmt.Errorf("%w: invalid configuration file %v (%v)", ErrConfig, path, err)
		}
	}

	if err := envconfig.Process(ENV_PREFIX, &cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid environment override (%v)", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) decode(b []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			fields := []string{}
			for _, e := range errs {
				fields = append(fields, fmt.Sprintf("%v failed '%v'", e.Namespace(), e.Tag()))
			}

			return fmt.Errorf("%w: %v", ErrConfig, strings.Join(fields, ", "))
		}

		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	return nil
}
