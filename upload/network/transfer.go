package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

// ProgressFunc receives the cumulative fraction of a transfer, 0..100. The
// fraction never decreases within one transfer.
type ProgressFunc func(fraction float64)

// Transport performs raw byte transfers to presigned storage URLs. It does
// not retry: a failed transfer is classified and returned so the caller can
// decide whether retrying or regenerating the URL is appropriate.
type Transport struct {
	httpClient *http.Client
	logger     log.Logger
}

// NewTransport creates a transport. client may be nil, in which case a
// client tuned for large PUTs is used.
func NewTransport(client *http.Client, logger log.Logger) *Transport {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Transport{
		httpClient: client,
		logger:     logger,
	}
}

// DefaultHTTPClient creates an HTTP client for transfers. There is no client
// timeout: callers bound latency through the request context.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     10 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}

// UploadWhole PUTs the entire file to signedURL with the given content type.
// The returned confirmation token may be empty; single-shot uploads are
// finalized through the coordinator, not through the token.
func (t *Transport) UploadWhole(ctx context.Context, signedURL string, body io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error) {
	return t.put(ctx, signedURL, body, size, contentType, onProgress)
}

// UploadSegment PUTs one byte range to its presigned URL. Segment transfers
// send no content type; the coordinator set it on the assembled object. A
// 2xx response without an ETag is a failure, since a part without a token
// cannot be referenced in the completion manifest.
func (t *Transport) UploadSegment(ctx context.Context, signedURL string, data []byte, onProgress ProgressFunc) (string, error) {
	token, err := t.put(ctx, signedURL, bytes.NewReader(data), int64(len(data)), "", onProgress)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrMissingConfirmationToken
	}
	return token, nil
}

func (t *Transport) put(ctx context.Context, signedURL string, body io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error) {
	if onProgress != nil {
		body = &progressReader{reader: body, total: size, onProgress: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("transfer cancelled: %w", ctx.Err())
		}
		return "", &NetworkError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logger.Printf(err.Error())
		}
	}()

	if resp.StatusCode == http.StatusForbidden {
		return "", &ForbiddenTransferError{URL: signedURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody := make([]byte, 1024)
		n, _ := io.ReadAtLeast(resp.Body, errorBody, 1)
		return "", &TransferError{StatusCode: resp.StatusCode, Body: string(errorBody[:n])}
	}

	return resp.Header.Get("ETag"), nil
}

// progressReader reports cumulative bytes handed to the HTTP client as a
// fraction of the transfer size.
type progressReader struct {
	reader     io.Reader
	total      int64
	sent       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 && p.total > 0 {
		p.sent += int64(n)
		fraction := float64(p.sent) / float64(p.total) * 100
		if fraction > 100 {
			fraction = 100
		}
		p.onProgress(fraction)
	}
	return n, err
}
