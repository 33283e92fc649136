// Package config reads trackerd's process-level bootstrap JSON config: the
// handful of settings the NV parameter store itself can't hold because
// they're needed before the store exists (where its files live, where to
// log, how to seed the jitter PRNG). Everything else - Argos mode, TX
// period, depth pile depth and so on - lives in the NV store and is
// reached through the DTE surface once the process is up, not here.
//
// This mirrors apps/rtcmlogger/config's GetConfig/getConfigFromReader split
// in the teacher repo, generalised from that program's single flat struct
// to trackerd's own field set.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Config holds the values read from the JSON bootstrap file.
type Config struct {
	// DataDirectory holds the NV store's config.dat/zone.dat/
	// pass_predict.dat files. Created if missing.
	DataDirectory string `json:"data_directory"`

	// LogEvents turns on the day-rolling diagnostic log. When false,
	// trackerd logs to stderr instead.
	LogEvents bool `json:"log_events"`

	// LogDirectory holds the day-rolling diagnostic log files, used only
	// when LogEvents is true.
	LogDirectory string `json:"log_directory"`

	// JitterSeed seeds the legacy/duty-cycle TX scheduler's PRNG. Zero
	// means "seed from the wall clock at startup".
	JitterSeed int64 `json:"jitter_seed"`
}

// GetConfig reads and parses the JSON config file at path.
func GetConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trackerd: cannot open config file: %w", err)
	}
	defer file.Close()
	return getConfigFromReader(file)
}

func getConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("trackerd: cannot read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("trackerd: not a valid config file: %w", err)
	}
	return &cfg, nil
}
