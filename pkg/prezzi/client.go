package prezzi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultBaseURL   = "https://prezzi-carburante.onrender.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "fuelfinder/1.0"

	retryBaseInterval = 250 * time.Millisecond
	maxAttempts       = 3
)

// FetchError reports that the price provider could not serve the request,
// after retries were exhausted for transient failures.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fuel price service unavailable: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches fuel station data from the price provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// NewClient creates a provider client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent: opts.UserAgent,
	}
}

// Nearby fetches station records around a coordinate. Transient transport
// failures are retried with exponential backoff; a well-formed empty
// response is not an error. Price data is volatile, so nothing is cached.
func (c *Client) Nearby(ctx context.Context, lat, lon, radiusKm float64, fuel FuelType, maxResults int) ([]StationRecord, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("distance", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	q.Set("fuel", fuel.APIName())
	q.Set("results", strconv.Itoa(maxResults))
	endpoint := fmt.Sprintf("%s/api/distributori?%s", c.baseURL, q.Encode())

	var records []StationRecord
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error fetching data: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error reading response body: %w", err)
		}

		records = nil
		if err := json.Unmarshal(body, &records); err != nil {
			return backoff.Permanent(fmt.Errorf("error unmarshaling JSON: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryBaseInterval
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)); err != nil {
		return nil, &FetchError{Err: err}
	}

	return records, nil
}
