package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("BEAMUP_COORDINATOR_URL", "https://coordinator.example.com/api")

	config, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "https://coordinator.example.com/api", config.CoordinatorURL)
	assert.Equal(t, "anonymous", config.UserID)
	assert.Equal(t, 0, config.CoordinatorRetries)

	threshold, err := config.SegmentThresholdBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(8*1024*1024), threshold)
}

func TestLoadConfigMissingCoordinatorURL(t *testing.T) {
	// Set but empty: env processing alone lets this through.
	t.Setenv("BEAMUP_COORDINATOR_URL", "")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BEAMUP_COORDINATOR_URL")
}

func TestLoadConfigBadThreshold(t *testing.T) {
	t.Setenv("BEAMUP_COORDINATOR_URL", "https://coordinator.example.com/api")
	t.Setenv("BEAMUP_SEGMENT_THRESHOLD", "lots")

	_, err := LoadConfig()

	require.Error(t, err)
}

func TestSegmentThresholdBytes(t *testing.T) {
	tests := []struct {
		threshold string
		want      int64
		wantErr   bool
	}{
		{threshold: "8MB", want: 8 * 1024 * 1024},
		{threshold: "1KB", want: 1024},
		{threshold: "512", want: 512},
		{threshold: "0", wantErr: true},
		{threshold: "-1KB", wantErr: true},
		{threshold: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.threshold, func(t *testing.T) {
			config := Config{SegmentThreshold: tt.threshold}
			got, err := config.SegmentThresholdBytes()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
