package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// HealthStatus is the outcome of the startup probe against the coordinator.
// A 4xx response means the coordinator is up but its storage backend is not
// configured; only a network-level failure or a 5xx counts as unreachable.
type HealthStatus struct {
	Reachable         bool
	StorageConfigured bool
}

// SingleURLGrant is the coordinator's answer to a single-shot URL request.
type SingleURLGrant struct {
	SessionID string
	SignedURL string
}

// SegmentURL is one per-segment presigned URL, numbered by the coordinator.
type SegmentURL struct {
	Index     int    `json:"index"`
	SignedURL string `json:"signedUrl"`
}

// SegmentedGrant is the coordinator's answer to a multipart initiation.
type SegmentedGrant struct {
	SessionID        string
	SegmentURLs      []SegmentURL
	SegmentSizeBytes int64
}

// CompletedSegment pairs a 1-based segment index with the confirmation token
// the storage backend returned for it.
type CompletedSegment struct {
	Index             int    `json:"index"`
	ConfirmationToken string `json:"confirmationToken"`
}

type singleURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	UserID      string `json:"userId"`
	FileSize    int64  `json:"fileSize,omitempty"`
}

type singleURLResponse struct {
	SessionID string `json:"sessionId"`
	SignedURL string `json:"signedUrl"`
}

type confirmRequest struct {
	SessionID string `json:"sessionId"`
}

type initiateRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	UserID      string `json:"userId"`
}

type initiateResponse struct {
	SessionID        string       `json:"sessionId"`
	SegmentURLs      []SegmentURL `json:"segmentUrls"`
	SegmentSizeBytes int64        `json:"segmentSizeBytes"`
}

type completeRequest struct {
	SessionID string             `json:"sessionId"`
	Parts     []CompletedSegment `json:"parts"`
}

type durableReferenceResponse struct {
	DurableReference string `json:"durableReference"`
}

type healthResponse struct {
	Reachable         bool `json:"reachable"`
	StorageConfigured bool `json:"storageConfigured"`
}

type abortRequest struct {
	SessionID string `json:"sessionId"`
}

// Client is a typed facade over the coordinator's handshake endpoints. Each
// call is a single request/response; retries across failed steps are the
// orchestrator's decision, not the client's.
type Client struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	accessToken string
	logger      log.Logger
}

// NewClient wraps the given retryable client. Pass a client from
// NewCoordinatorHTTPClient unless you need custom retry or timeout behavior.
func NewClient(httpClient *retryablehttp.Client, baseURL string, accessToken string, logger log.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

// NewCoordinatorHTTPClient builds the HTTP client used for coordinator calls.
// retries is the number of transient-failure retries per call; 0 keeps every
// facade call a single request/response.
func NewCoordinatorHTTPClient(logger log.Logger, retries int) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = retries
	// Hand the final response back instead of a "giving up" error so the
	// facade can classify the status code.
	client.ErrorHandler = func(resp *http.Response, err error, _ int) (*http.Response, error) {
		return resp, err
	}
	return client
}

// CheckHealth probes the coordinator once at startup. It never returns an
// error: failure to reach the endpoint is reported as Reachable=false so the
// surrounding application can degrade instead of aborting.
func (c *Client) CheckHealth(ctx context.Context) HealthStatus {
	url := fmt.Sprintf("%s/health", c.baseURL)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Warnf("health check: %s", err)
		return HealthStatus{}
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debugf("health check: coordinator unreachable: %s", err)
		return HealthStatus{}
	}
	defer c.closeBody(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var response healthResponse
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			c.logger.Warnf("health check: decode response: %s", err)
			return HealthStatus{Reachable: true}
		}
		return HealthStatus{Reachable: true, StorageConfigured: response.StorageConfigured}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The coordinator answered, so it is deployed; storage is not set up.
		return HealthStatus{Reachable: true, StorageConfigured: false}
	default:
		return HealthStatus{}
	}
}

// RequestSingleURL asks the coordinator for a presigned URL covering the
// whole file, opening a new upload session.
func (c *Client) RequestSingleURL(ctx context.Context, fileName, contentType, userID string, size int64) (SingleURLGrant, error) {
	var response singleURLResponse
	err := c.postJSON(ctx, "/presigned-url", singleURLRequest{
		FileName:    fileName,
		ContentType: contentType,
		UserID:      userID,
		FileSize:    size,
	}, &response)
	if err != nil {
		return SingleURLGrant{}, err
	}
	return SingleURLGrant{SessionID: response.SessionID, SignedURL: response.SignedURL}, nil
}

// ConfirmSingle finalizes a single-shot upload and returns the durable
// reference for the stored object.
func (c *Client) ConfirmSingle(ctx context.Context, sessionID string) (string, error) {
	var response durableReferenceResponse
	err := c.postJSON(ctx, "/confirm", confirmRequest{SessionID: sessionID}, &response)
	if err != nil {
		return "", err
	}
	return response.DurableReference, nil
}

// InitiateSegmented opens a segmented upload session and returns the ordered
// per-segment URLs along with the segment size the coordinator planned with.
func (c *Client) InitiateSegmented(ctx context.Context, fileName, contentType, userID string, size int64) (SegmentedGrant, error) {
	var response initiateResponse
	err := c.postJSON(ctx, "/multipart/initiate", initiateRequest{
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    size,
		UserID:      userID,
	}, &response)
	if err != nil {
		return SegmentedGrant{}, err
	}
	return SegmentedGrant{
		SessionID:        response.SessionID,
		SegmentURLs:      response.SegmentURLs,
		SegmentSizeBytes: response.SegmentSizeBytes,
	}, nil
}

// CompleteSegmented submits the completion manifest, ordered by index, and
// returns the durable reference for the assembled object.
func (c *Client) CompleteSegmented(ctx context.Context, sessionID string, parts []CompletedSegment) (string, error) {
	var response durableReferenceResponse
	err := c.postJSON(ctx, "/multipart/complete", completeRequest{
		SessionID: sessionID,
		Parts:     parts,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.DurableReference, nil
}

// AbortSegmented releases the coordinator-side reservations of a failed
// segmented upload. Callers run this on an already-failed path, so its own
// failure should be logged, never escalated.
func (c *Client) AbortSegmented(ctx context.Context, sessionID string) error {
	return c.postJSON(ctx, "/multipart/abort", abortRequest{SessionID: sessionID}, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, requestBody interface{}, out interface{}) error {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("coordinator call cancelled: %w", ctx.Err())
		}
		return &NetworkError{Err: err}
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unwrapError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setCommonHeaders(req *retryablehttp.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Printf(err.Error())
	}
}

func unwrapError(resp *http.Response) error {
	message, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CoordinatorError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return &CoordinatorError{StatusCode: resp.StatusCode, Message: string(message)}
}
