// Package google talks to the two Google APIs the site needs: Places reviews
// and Drive image listings. API keys stay on the server.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	// ErrDisabled means the API key for the feature is not configured.
	ErrDisabled = errors.New("google api disabled: no api key configured")
	// ErrUpstream wraps failures reported by the Google API itself.
	ErrUpstream = errors.New("google api request failed")
)

// retryLogger routes retryablehttp logs through logrus.
type retryLogger struct{}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Error(msg)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Debug(msg)
}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Trace(msg)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Warn(msg)
}

// Client is the shared transport for Google API calls: retries on 5xx and 429
// and a process-wide request rate.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(requestsPerSecond float64) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 15 * time.Second
	retryClient.Logger = retryLogger{}

	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: retryClient.StandardClient(),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// getJSON fetches url and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return nil
}
