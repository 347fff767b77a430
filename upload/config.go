package upload

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/kelseyhightower/envconfig"
)

// Config wires the orchestrator and the coordinator client. There is no
// process-wide default: callers create it once and pass it to NewUploader.
type Config struct {
	// CoordinatorURL is the base URL of the coordinator API, without a
	// trailing slash.
	CoordinatorURL string `envconfig:"BEAMUP_COORDINATOR_URL" required:"true"`
	AccessToken    string `envconfig:"BEAMUP_ACCESS_TOKEN"`
	UserID         string `envconfig:"BEAMUP_USER_ID" default:"anonymous"`
	// SegmentThreshold is the file size above which uploads are segmented.
	// Accepts human-readable values like "8MB".
	SegmentThreshold string `envconfig:"BEAMUP_SEGMENT_THRESHOLD" default:"8MB"`
	// CoordinatorRetries is the number of transient-failure retries per
	// coordinator call. 0 keeps every handshake call a single round-trip.
	CoordinatorRetries int  `envconfig:"BEAMUP_COORDINATOR_RETRIES" default:"0"`
	Verbose            bool `envconfig:"BEAMUP_VERBOSE" default:"false"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	// envconfig only enforces required for unset variables; a set-but-empty
	// BEAMUP_COORDINATOR_URL passes, so the emptiness check lives here.
	if config.CoordinatorURL == "" {
		return Config{}, fmt.Errorf("load config: BEAMUP_COORDINATOR_URL is empty")
	}
	if _, err := config.SegmentThresholdBytes(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// SegmentThresholdBytes parses the configured segmentation threshold.
func (c Config) SegmentThresholdBytes() (int64, error) {
	size, err := units.RAMInBytes(c.SegmentThreshold)
	if err != nil {
		return 0, fmt.Errorf("parse segment threshold %q: %w", c.SegmentThreshold, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("segment threshold must be positive, got %q", c.SegmentThreshold)
	}
	return size, nil
}
