package sharepoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "sp2s3/0.1"
)

// defaultSTSURL is the Microsoft security token service endpoint that issues
// SharePoint Online binary security tokens for user credentials.
const defaultSTSURL = "https://login.microsoftonline.com/extSTS.srf"

// Client is an HTTP client for the SharePoint REST API of a single site.
// It handles request construction, cookie-based session authentication,
// retry with exponential backoff, and error classification.
//
// Call SignIn once before any other operation; the FedAuth/rtFa session
// cookies it acquires are held in the client's cookie jar and sent with
// every subsequent request.
type Client struct {
	siteURL    string // e.g. https://contoso.sharepoint.com/sites/eng, no trailing slash
	sitePath   string // server-relative site path, e.g. /sites/eng ("" for the root site)
	webRoot    string // scheme://host, where session cookies are set
	httpClient *http.Client
	logger     *slog.Logger

	// stsURL is the token service endpoint. Tests point it at a local server.
	stsURL string

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the given SharePoint site URL.
// The httpClient's cookie jar is replaced; pass nil to use a default client.
func NewClient(siteURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: parsing site URL %q: %w", siteURL, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("sharepoint: site URL %q must be absolute", siteURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	// Session cookies (FedAuth, rtFa) are issued during sign-in and must be
	// replayed on every API call.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: creating cookie jar: %w", err)
	}

	httpClient.Jar = jar

	return &Client{
		siteURL:    strings.TrimRight(siteURL, "/"),
		sitePath:   strings.TrimRight(u.Path, "/"),
		webRoot:    u.Scheme + "://" + u.Host,
		httpClient: httpClient,
		logger:     logger,
		stsURL:     defaultSTSURL,
		sleepFunc:  timeSleep,
	}, nil
}

// Do executes an HTTP request against the SharePoint REST API.
// The path is appended to the client's site URL.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	reqURL := c.siteURL + path

	var attempt int
	for {
		resp, err := c.doOnce(ctx, method, reqURL, body)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("sharepoint: request canceled: %w", ctx.Err())
			}

			// Network errors are retryable.
			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("sharepoint: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("sharepoint: %s %s failed after %d retries: %w", method, path, maxRetries, err)
		}

		// 2xx is success.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		correlationID := resp.Header.Get("sprequestguid")

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("sharepoint: request canceled: %w", err)
			}

			attempt++

			continue
		}

		sentinel := classifyStatus(resp.StatusCode)
		apiErr := &APIError{
			StatusCode:    resp.StatusCode,
			CorrelationID: correlationID,
			Message:       string(errBody),
			Err:           sentinel,
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json;odata=nometadata")

	return c.httpClient.Do(req)
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	// Apply ±25% jitter.
	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
