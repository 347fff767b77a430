// Package upload moves local files into object storage through short-lived
// presigned URLs brokered by a remote coordinator. The client never holds
// storage credentials: it validates URL expiry locally, picks a single-shot
// or segmented transfer by file size, drives the initiate/upload/complete
// handshake and aggregates progress across segments.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/beamup-io/beamup/upload/network"
	"github.com/beamup-io/beamup/upload/planner"
	"github.com/beamup-io/beamup/upload/signedurl"
)

const abortTimeout = 30 * time.Second

// CoordinatorAPI is the coordinator handshake surface the orchestrator
// drives. *network.Client implements it.
type CoordinatorAPI interface {
	CheckHealth(ctx context.Context) network.HealthStatus
	RequestSingleURL(ctx context.Context, fileName, contentType, userID string, size int64) (network.SingleURLGrant, error)
	ConfirmSingle(ctx context.Context, sessionID string) (string, error)
	InitiateSegmented(ctx context.Context, fileName, contentType, userID string, size int64) (network.SegmentedGrant, error)
	CompleteSegmented(ctx context.Context, sessionID string, parts []network.CompletedSegment) (string, error)
	AbortSegmented(ctx context.Context, sessionID string) error
}

// TransferClient moves raw bytes to presigned URLs. *network.Transport
// implements it.
type TransferClient interface {
	UploadWhole(ctx context.Context, signedURL string, body io.Reader, size int64, contentType string, onProgress network.ProgressFunc) (string, error)
	UploadSegment(ctx context.Context, signedURL string, data []byte, onProgress network.ProgressFunc) (string, error)
}

// Result is the terminal outcome of a successful upload attempt.
type Result struct {
	// DurableReference is the stable locator of the finalized object,
	// usable with Fetch.
	DurableReference string
	SessionID        string
	Mode             Mode
}

// Uploader is the upload state machine. One Uploader drives one attempt at a
// time; a finished or failed attempt must be Reset before the next one.
type Uploader struct {
	cfg          Config
	api          CoordinatorAPI
	transport    TransferClient
	pathModifier pathutil.PathModifier
	logger       log.Logger

	mu       sync.Mutex
	state    State
	session  *Session
	progress *progressTracker
	lastErr  error
}

// NewUploader creates an uploader. api and transport may be nil, in which
// case clients are built from cfg.
func NewUploader(cfg Config, api CoordinatorAPI, transport TransferClient, logger log.Logger) *Uploader {
	if api == nil {
		httpClient := network.NewCoordinatorHTTPClient(logger, cfg.CoordinatorRetries)
		api = network.NewClient(httpClient, cfg.CoordinatorURL, cfg.AccessToken, logger)
	}
	if transport == nil {
		transport = network.NewTransport(nil, logger)
	}
	return &Uploader{
		cfg:          cfg,
		api:          api,
		transport:    transport,
		pathModifier: pathutil.NewPathModifier(),
		logger:       logger,
		state:        StateIdle,
	}
}

// CheckHealth probes the coordinator once, typically at startup. An
// unreachable coordinator is an availability problem; a reachable one
// without configured storage is a deployment problem.
func (u *Uploader) CheckHealth(ctx context.Context) network.HealthStatus {
	return u.api.CheckHealth(ctx)
}

// State returns the orchestrator's current state.
func (u *Uploader) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Err returns the error that moved the orchestrator into StateError, nil
// otherwise.
func (u *Uploader) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastErr
}

// Progress returns the current attempt's cumulative fraction, 0..100.
func (u *Uploader) Progress() float64 {
	u.mu.Lock()
	tracker := u.progress
	u.mu.Unlock()
	if tracker == nil {
		return 0
	}
	return tracker.current()
}

// Reset returns the uploader to StateIdle from a terminal state, discarding
// the session. It refuses to interrupt an attempt in flight.
func (u *Uploader) Reset() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateIdle && !u.state.terminal() {
		return fmt.Errorf("cannot reset while an attempt is in flight (state %q)", u.state)
	}
	u.state = StateIdle
	u.session = nil
	u.progress = nil
	u.lastErr = nil
	return nil
}

// Upload runs one attempt end to end and returns the durable reference of
// the stored object. On failure the uploader is left in StateError with the
// classified cause retrievable through Err; the caller decides whether to
// Reset and retry. Cancelling ctx tears down the in-flight call and fails
// the attempt.
func (u *Uploader) Upload(ctx context.Context, input Input) (Result, error) {
	if !u.begin() {
		return Result{}, fmt.Errorf("uploader is not idle (state %q): reset before starting a new attempt", u.State())
	}

	attemptID := uuid.NewString()
	u.logger.Debugf("Upload attempt %s: %s", attemptID, input.Path)

	path, err := u.resolveInputPath(input.Path)
	if err != nil {
		return Result{}, u.fail(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, u.fail(fmt.Errorf("stat file: %w", err))
	}
	if info.Size() == 0 {
		return Result{}, u.fail(&planner.InvalidPlanError{Reason: "file is empty"})
	}

	threshold, err := u.cfg.SegmentThresholdBytes()
	if err != nil {
		return Result{}, u.fail(err)
	}

	plan := Plan{
		FileName:       filepath.Base(path),
		ContentType:    u.resolveContentType(input.ContentType, path),
		TotalSizeBytes: info.Size(),
		Mode:           ModeSingle,
	}
	if plan.TotalSizeBytes > threshold {
		plan.Mode = ModeSegmented
	}
	u.logger.Debugf("File size: %s, mode: %s",
		units.HumanSizeWithPrecision(float64(plan.TotalSizeBytes), 3), plan.Mode)

	tracker := newProgressTracker(plan.TotalSizeBytes, input.OnProgress)
	u.mu.Lock()
	u.session = &Session{Plan: plan}
	u.progress = tracker
	u.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return Result{}, u.fail(fmt.Errorf("open file: %w", err))
	}
	defer func() {
		if err := file.Close(); err != nil {
			u.logger.Errorf("failed to close file: %s", err)
		}
	}()

	if plan.Mode == ModeSegmented {
		return u.runSegmented(ctx, file, plan, tracker)
	}
	return u.runSingle(ctx, file, plan, input, tracker)
}

func (u *Uploader) runSingle(ctx context.Context, file *os.File, plan Plan, input Input, tracker *progressTracker) (Result, error) {
	var grant network.SingleURLGrant
	if input.PreissuedURL != "" {
		if err := u.gateURL(input.PreissuedURL); err != nil {
			return Result{}, u.fail(err)
		}
		grant = network.SingleURLGrant{
			SessionID: input.PreissuedSessionID,
			SignedURL: input.PreissuedURL,
		}
	} else {
		u.transition(StateGeneratingURL)
		issued, err := u.api.RequestSingleURL(ctx, plan.FileName, plan.ContentType, u.cfg.UserID, plan.TotalSizeBytes)
		if err != nil {
			return Result{}, u.fail(fmt.Errorf("request upload URL: %w", err))
		}
		if err := u.gateURL(issued.SignedURL); err != nil {
			return Result{}, u.fail(err)
		}
		grant = issued
	}

	u.setSessionID(grant.SessionID)
	u.transition(StateUploading)
	_, err := u.transport.UploadWhole(ctx, grant.SignedURL, file, plan.TotalSizeBytes, plan.ContentType, tracker.wholeFileProgress)
	if err != nil {
		return Result{}, u.fail(fmt.Errorf("upload file: %w", err))
	}

	u.transition(StateConfirming)
	reference, err := u.api.ConfirmSingle(ctx, grant.SessionID)
	if err != nil {
		return Result{}, u.fail(fmt.Errorf("confirm upload: %w", err))
	}

	u.transition(StateDone)
	u.logger.Donef("Uploaded %s", plan.FileName)
	return Result{DurableReference: reference, SessionID: grant.SessionID, Mode: ModeSingle}, nil
}

func (u *Uploader) runSegmented(ctx context.Context, file *os.File, plan Plan, tracker *progressTracker) (Result, error) {
	u.transition(StateInitiatingSegmented)
	grant, err := u.api.InitiateSegmented(ctx, plan.FileName, plan.ContentType, u.cfg.UserID, plan.TotalSizeBytes)
	if err != nil {
		return Result{}, u.fail(fmt.Errorf("initiate segmented upload: %w", err))
	}
	// From here on a coordinator-side session exists: any failure below must
	// release its reservations through a fire-and-forget abort.
	u.setSessionID(grant.SessionID)

	segments, err := planner.Plan(plan.TotalSizeBytes, grant.SegmentSizeBytes)
	if err != nil {
		return Result{}, u.fail(err)
	}
	urlByIndex := make(map[int]string, len(grant.SegmentURLs))
	for _, segmentURL := range grant.SegmentURLs {
		urlByIndex[segmentURL.Index] = segmentURL.SignedURL
	}
	if len(urlByIndex) != len(segments) {
		return Result{}, u.fail(fmt.Errorf("coordinator issued %d segment URLs for %d planned segments", len(urlByIndex), len(segments)))
	}

	u.transition(StateUploadingSegments)
	u.logger.Debugf("Uploading %d segments, %s each",
		len(segments), units.HumanSizeWithPrecision(float64(grant.SegmentSizeBytes), 3))

	stats := newTransferStats()
	completed := make([]network.CompletedSegment, 0, len(segments))
	for _, segment := range segments {
		signedURL, ok := urlByIndex[segment.Index]
		if !ok {
			return Result{}, u.fail(fmt.Errorf("coordinator issued no URL for segment %d", segment.Index))
		}
		if err := u.gateURL(signedURL); err != nil {
			return Result{}, u.fail(fmt.Errorf("segment %d: %w", segment.Index, err))
		}

		data, err := io.ReadAll(io.NewSectionReader(file, segment.Start, segment.Size()))
		if err != nil {
			return Result{}, u.fail(fmt.Errorf("read segment %d: %w", segment.Index, err))
		}

		start := time.Now()
		token, err := u.transport.UploadSegment(ctx, signedURL, data, func(fraction float64) {
			tracker.segmentProgress(segment.Size(), fraction)
		})
		if err != nil {
			return Result{}, u.fail(fmt.Errorf("upload segment %d: %w", segment.Index, err))
		}

		stats.record(time.Since(start))
		tracker.segmentDone(segment.Size())
		completed = append(completed, network.CompletedSegment{
			Index:             segment.Index,
			ConfirmationToken: token,
		})
		u.appendCompleted(completed[len(completed)-1])
		u.logger.Debugf("Segment %d/%d uploaded in %v (avg %v)",
			segment.Index, len(segments),
			time.Since(start).Round(time.Millisecond), stats.average().Round(time.Millisecond))
	}

	if err := verifyManifest(completed, len(segments)); err != nil {
		return Result{}, u.fail(err)
	}

	u.transition(StateCompletingSegmented)
	reference, err := u.api.CompleteSegmented(ctx, grant.SessionID, completed)
	if err != nil {
		return Result{}, u.fail(fmt.Errorf("complete segmented upload: %w", err))
	}

	u.transition(StateDone)
	done, avg, longest := stats.summary()
	u.logger.Donef("Uploaded %s in %d segments (avg %v, slowest %v)",
		plan.FileName, done, avg.Round(time.Millisecond), longest.Round(time.Millisecond))
	return Result{DurableReference: reference, SessionID: grant.SessionID, Mode: ModeSegmented}, nil
}

// gateURL is the acceptance gate: no transport call is attempted while the
// URL status is anything but valid.
func (u *Uploader) gateURL(signedURL string) error {
	status := signedurl.Inspect(signedURL, time.Now())
	if status != signedurl.StatusValid {
		return &URLRejectedError{Status: status}
	}
	if details, ok := signedurl.InspectDetails(signedURL, time.Now()); ok {
		u.logger.Debugf("Upload URL valid for another %ds", details.SecondsRemaining)
	}
	return nil
}

func (u *Uploader) begin() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateIdle {
		return false
	}
	u.state = StateValidatingURL
	return true
}

func (u *Uploader) transition(to State) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !canTransition(u.state, to) {
		u.logger.Errorf("illegal state transition %q -> %q", u.state, to)
	}
	u.logger.Debugf("State: %s -> %s", u.state, to)
	u.state = to
}

func (u *Uploader) setSessionID(sessionID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session != nil {
		u.session.ID = sessionID
	}
}

func (u *Uploader) appendCompleted(segment network.CompletedSegment) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session != nil {
		u.session.Completed = append(u.session.Completed, segment)
	}
}

// fail moves the attempt into StateError, keeping err inspectable, and
// releases the coordinator-side session of a failed segmented upload.
func (u *Uploader) fail(err error) error {
	u.mu.Lock()
	u.state = StateError
	u.lastErr = err
	var abortSessionID string
	if u.session != nil && u.session.ID != "" && u.session.Plan.Mode == ModeSegmented {
		abortSessionID = u.session.ID
	}
	u.mu.Unlock()

	u.logger.Errorf("Upload failed: %s", err)
	if abortSessionID != "" {
		u.abort(abortSessionID)
	}
	return err
}

// abort is fire-and-forget cleanup on an already-failed path: its own
// failure is logged, never escalated. It runs on a fresh context so that the
// cancellation that failed the attempt cannot cancel the cleanup too.
func (u *Uploader) abort(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	if err := u.api.AbortSegmented(ctx, sessionID); err != nil {
		u.logger.Warnf("failed to abort segmented upload %s: %s", sessionID, err)
		return
	}
	u.logger.Debugf("Aborted segmented upload %s", sessionID)
}
