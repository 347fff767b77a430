package upload

import (
	"context"
	"io"

	"github.com/beamup-io/beamup/upload/network"
)

type fakeCoordinator struct {
	health network.HealthStatus

	singleGrant network.SingleURLGrant
	singleErr   error
	singleCalls int

	confirmReference string
	confirmErr       error
	confirmedSession string

	segmentedGrant network.SegmentedGrant
	initiateErr    error
	initiateCalls  int

	completeReference string
	completeErr       error
	completeCalls     int
	completedSession  string
	completedParts    []network.CompletedSegment

	abortErr       error
	abortCalls     int
	abortedSession string
}

func (f *fakeCoordinator) CheckHealth(ctx context.Context) network.HealthStatus {
	return f.health
}

func (f *fakeCoordinator) RequestSingleURL(ctx context.Context, fileName, contentType, userID string, size int64) (network.SingleURLGrant, error) {
	f.singleCalls++
	if f.singleErr != nil {
		return network.SingleURLGrant{}, f.singleErr
	}
	return f.singleGrant, nil
}

func (f *fakeCoordinator) ConfirmSingle(ctx context.Context, sessionID string) (string, error) {
	f.confirmedSession = sessionID
	if f.confirmErr != nil {
		return "", f.confirmErr
	}
	return f.confirmReference, nil
}

func (f *fakeCoordinator) InitiateSegmented(ctx context.Context, fileName, contentType, userID string, size int64) (network.SegmentedGrant, error) {
	f.initiateCalls++
	if f.initiateErr != nil {
		return network.SegmentedGrant{}, f.initiateErr
	}
	return f.segmentedGrant, nil
}

func (f *fakeCoordinator) CompleteSegmented(ctx context.Context, sessionID string, parts []network.CompletedSegment) (string, error) {
	f.completeCalls++
	f.completedSession = sessionID
	f.completedParts = parts
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completeReference, nil
}

func (f *fakeCoordinator) AbortSegmented(ctx context.Context, sessionID string) error {
	f.abortCalls++
	f.abortedSession = sessionID
	return f.abortErr
}

type segmentResult struct {
	token    string
	err      error
	progress []float64
}

type fakeTransport struct {
	wholeToken       string
	wholeErr         error
	wholeCalls       int
	wholeContentType string
	wholeSize        int64
	wholeProgress    []float64

	segmentResults []segmentResult
	segmentCalls   int
	segmentSizes   []int64
}

func (f *fakeTransport) UploadWhole(ctx context.Context, signedURL string, body io.Reader, size int64, contentType string, onProgress network.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.wholeCalls++
	f.wholeContentType = contentType
	f.wholeSize = size
	for _, fraction := range f.wholeProgress {
		if onProgress != nil {
			onProgress(fraction)
		}
	}
	if f.wholeErr != nil {
		return "", f.wholeErr
	}
	return f.wholeToken, nil
}

func (f *fakeTransport) UploadSegment(ctx context.Context, signedURL string, data []byte, onProgress network.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result := f.segmentResults[f.segmentCalls]
	f.segmentCalls++
	f.segmentSizes = append(f.segmentSizes, int64(len(data)))
	for _, fraction := range result.progress {
		if onProgress != nil {
			onProgress(fraction)
		}
	}
	if result.err != nil {
		return "", result.err
	}
	return result.token, nil
}
