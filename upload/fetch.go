package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
)

// ErrObjectNotFound means the durable reference no longer resolves to a
// stored object.
var ErrObjectNotFound = errors.New("no object found for the provided reference")

// FetchParams names the object to download and where to put it.
type FetchParams struct {
	// DurableReference is the locator returned when an upload completed.
	DurableReference string
	DownloadPath     string
}

// Fetch downloads a finalized object by its durable reference. Only a
// completed upload yields such a reference.
func Fetch(ctx context.Context, params FetchParams, logger log.Logger) error {
	if params.DurableReference == "" {
		return fmt.Errorf("durable reference is empty")
	}
	if params.DownloadPath == "" {
		return fmt.Errorf("download path is empty")
	}

	retryableHTTPClient := retryhttp.NewClient(logger)
	retryableHTTPClient.CheckRetry = loggedRetryPolicy(logger)
	client := retryableHTTPClient.StandardClient()

	if err := checkObjectExists(ctx, client, params.DurableReference); err != nil {
		return err
	}

	logger.Debugf("Downloading %s", params.DurableReference)
	downloader := got.New()
	downloader.Client = client
	if err := downloader.Do(got.NewDownload(ctx, params.DurableReference, params.DownloadPath)); err != nil {
		return fmt.Errorf("download object: %w", err)
	}

	return nil
}

func checkObjectExists(ctx context.Context, client *http.Client, reference string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reference, nil)
	if err != nil {
		return fmt.Errorf("invalid durable reference: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach storage: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage responded with HTTP %d", resp.StatusCode)
	}
	return nil
}

// loggedRetryPolicy wraps the default policy so transient download failures
// show up in debug output before the retry fires.
func loggedRetryPolicy(logger log.Logger) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, reqErr error) (bool, error) {
		retry, policyErr := retryablehttp.DefaultRetryPolicy(ctx, resp, reqErr)
		if retry {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			logger.Debugf("Retrying download (status %d, error: %v)", status, reqErr)
		}
		return retry, policyErr
	}
}
