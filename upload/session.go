package upload

import (
	"errors"
	"fmt"

	"github.com/beamup-io/beamup/upload/network"
	"github.com/beamup-io/beamup/upload/signedurl"
)

// ErrIncompleteManifest means the completion manifest does not cover every
// planned segment with a contiguous 1..N index sequence. The orchestrator
// checks this locally; it never relies on the coordinator to catch it.
var ErrIncompleteManifest = errors.New("completion manifest does not cover every planned segment")

// Mode selects between a single-shot and a segmented transfer. It is decided
// once per attempt from the file size and never revisited mid-flight.
type Mode string

const (
	ModeSingle    Mode = "single"
	ModeSegmented Mode = "segmented"
)

// Plan is the immutable description of one upload attempt.
type Plan struct {
	FileName       string
	ContentType    string
	TotalSizeBytes int64
	Mode           Mode
}

// Session tracks one attempt's coordinator-issued identity and accumulated
// segment tokens. It is owned exclusively by the orchestrator and discarded
// on terminal state or reset, never persisted.
type Session struct {
	ID        string
	Plan      Plan
	Completed []network.CompletedSegment
}

// URLRejectedError reports a presigned URL that failed the acceptance gate
// before any transfer was attempted.
type URLRejectedError struct {
	Status signedurl.Status
}

func (e *URLRejectedError) Error() string {
	return fmt.Sprintf("upload URL rejected (status %q): regenerate the URL before retrying", e.Status)
}

// verifyManifest checks that completed covers exactly planned segments with
// indices 1..planned in order, one token per segment.
func verifyManifest(completed []network.CompletedSegment, planned int) error {
	if len(completed) != planned {
		return ErrIncompleteManifest
	}
	for i, segment := range completed {
		if segment.Index != i+1 {
			return ErrIncompleteManifest
		}
	}
	return nil
}
