package signedurl

import (
	"net/url"
	"strconv"
	"time"
)

// Status classifies a presigned URL's temporal validity.
type Status string

const (
	// StatusValid means the URL can be handed to a transport.
	StatusValid Status = "valid"
	// StatusExpired means the signing window has passed.
	StatusExpired Status = "expired"
	// StatusInvalid means the URL carries no parseable signing window.
	StatusInvalid Status = "invalid"
	// StatusMissing means no URL was provided at all.
	StatusMissing Status = "missing"
	// StatusChecking is a transient value for callers that classify asynchronously.
	StatusChecking Status = "checking"
)

const (
	algorithmParam = "X-Amz-Algorithm"
	dateParam      = "X-Amz-Date"
	expiresParam   = "X-Amz-Expires"

	// Compact UTC instant used by SigV4 query signing. The reference time is
	// parsed without a zone designator, which yields UTC; storage backends
	// sign exclusively in UTC, so local-time parsing would shift the expiry.
	dateLayout = "20060102T150405Z"
)

// Details is a read-only projection of a URL's signing window, for display.
type Details struct {
	SignedAt         time.Time
	ExpiresAt        time.Time
	SecondsRemaining int64
}

// Inspect classifies rawURL at the given instant. It never fails: an empty
// URL is StatusMissing and anything unparseable is StatusInvalid. The expiry
// instant itself still counts as valid.
func Inspect(rawURL string, now time.Time) Status {
	if rawURL == "" {
		return StatusMissing
	}
	_, expiresAt, ok := window(rawURL)
	if !ok {
		return StatusInvalid
	}
	if now.After(expiresAt) {
		return StatusExpired
	}
	return StatusValid
}

// InspectDetails reports the signing window of rawURL at the given instant.
// SecondsRemaining is clamped to 0 once the window has passed. The second
// return value is false when the URL carries no parseable window.
func InspectDetails(rawURL string, now time.Time) (Details, bool) {
	signedAt, expiresAt, ok := window(rawURL)
	if !ok {
		return Details{}, false
	}
	remaining := int64(expiresAt.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return Details{
		SignedAt:         signedAt,
		ExpiresAt:        expiresAt,
		SecondsRemaining: remaining,
	}, true
}

func window(rawURL string) (signedAt, expiresAt time.Time, ok bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	query := parsed.Query()
	if query.Get(algorithmParam) == "" {
		return time.Time{}, time.Time{}, false
	}
	signedAt, err = time.Parse(dateLayout, query.Get(dateParam))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	seconds, err := strconv.ParseInt(query.Get(expiresParam), 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}, time.Time{}, false
	}
	return signedAt, signedAt.Add(time.Duration(seconds) * time.Second), true
}
