// Package config loads the two inputs of a run: process settings from
// GWINFRA_* environment variables, and the resource manifest from YAML.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tindevelopers/gwinfra/internal/cloud"
)

// Settings are process-level knobs. Manifest content never lives here;
// these only tune how a run executes and where it authenticates.
type Settings struct {
	// Project overrides the manifest's project, mirroring how the original
	// deploy flow took PROJECT_ID from the environment.
	Project         string `envconfig:"PROJECT"`
	Region          string `envconfig:"REGION"`
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`
	Backend         string `envconfig:"BACKEND" default:"google"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	Parallelism    int           `envconfig:"PARALLELISM" default:"4"`
	RetryMax       int           `envconfig:"RETRY_MAX" default:"4"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxDelay  time.Duration `envconfig:"RETRY_MAX_DELAY" default:"8s"`
	OpTimeout      time.Duration `envconfig:"OP_TIMEOUT" default:"4m"`

	// LockDir holds run lock files; empty means the system temp directory.
	LockDir string `envconfig:"LOCK_DIR"`
}

// LoadSettings reads GWINFRA_* environment variables.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("gwinfra", &s); err != nil {
		return Settings{}, cloud.ConfigErrorf("read environment: %v", err)
	}
	return s, nil
}
