package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"travel-route-service/internal/platform/obs"
)

// maxRetryAfter caps a server-requested wait; longer hints fall back to
// the regular backoff.
const maxRetryAfter = 5 * time.Second

// statusError is a non-2xx answer from ORS.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (e *statusError) temporary() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get performs a single GET of path with query against the ORS API.
func (o *ORSGeocoder) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := o.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &statusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return resp, nil
}

// getWithRetry retries network errors, 429 and 5xx answers with
// exponential backoff. A Retry-After hint on the answer replaces the
// backoff for that attempt.
func (o *ORSGeocoder) getWithRetry(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	backoff := o.backoff

	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		resp, err := o.get(ctx, path, query)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		wait, ok := retryWait(err, backoff)
		if !ok || attempt == o.maxAttempts {
			break
		}
		log.Printf("req_id=%s ors: retry path=%s attempt=%d wait=%s err=%v", obs.RequestID(ctx), path, attempt, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func retryWait(err error, backoff time.Duration) (time.Duration, bool) {
	var se *statusError
	if errors.As(err, &se) {
		if !se.temporary() {
			return 0, false
		}
		if se.RetryAfter > 0 {
			return se.RetryAfter, true
		}
		return backoff, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return backoff, true
	}
	return 0, false
}

// parseRetryAfter understands the delay-seconds form only.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return 0
	}
	return d
}
