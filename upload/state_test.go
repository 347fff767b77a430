package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{name: "attempt starts from idle", from: StateIdle, to: StateValidatingURL, want: true},
		{name: "validated URL proceeds to generation", from: StateValidatingURL, to: StateGeneratingURL, want: true},
		{name: "validated URL proceeds to segmented initiation", from: StateValidatingURL, to: StateInitiatingSegmented, want: true},
		{name: "pre-issued URL proceeds straight to uploading", from: StateValidatingURL, to: StateUploading, want: true},
		{name: "single upload confirms", from: StateUploading, to: StateConfirming, want: true},
		{name: "segments complete", from: StateUploadingSegments, to: StateCompletingSegmented, want: true},
		{name: "confirming finishes", from: StateConfirming, to: StateDone, want: true},
		{name: "completing finishes", from: StateCompletingSegmented, to: StateDone, want: true},
		{name: "error is reachable while uploading", from: StateUploading, to: StateError, want: true},
		{name: "error is reachable while idle", from: StateIdle, to: StateError, want: true},
		{name: "error is not reachable from done", from: StateDone, to: StateError, want: false},
		{name: "error is not reachable from itself", from: StateError, to: StateError, want: false},
		{name: "reset from done", from: StateDone, to: StateIdle, want: true},
		{name: "reset from error", from: StateError, to: StateIdle, want: true},
		{name: "no skipping straight to uploading", from: StateIdle, to: StateUploading, want: false},
		{name: "mode is never revisited mid-flight", from: StateUploadingSegments, to: StateUploading, want: false},
		{name: "done does not restart silently", from: StateDone, to: StateValidatingURL, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}
}
