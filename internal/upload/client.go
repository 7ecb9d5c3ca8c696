package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/ingest"
)

// ErrPartial is returned when the server imported some sessions of a file
// but rejected others.
var ErrPartial = errors.New("partial import")

const maxAttempts = 3

// Client sends exports to the LiftLog server over HTTP.
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client

	// Backoff returns the wait before retry attempt n (n >= 1).
	Backoff func(n int) time.Duration
}

// NewClient creates a new HTTP client for the LiftLog server.
func NewClient(serverURL, token string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		token:     token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Backoff: func(n int) time.Duration { return time.Duration(1<<uint(n-1)) * time.Second },
	}
}

// ServerURL returns the normalized base URL.
func (c *Client) ServerURL() string { return c.serverURL }

// SendAlphaCSV POSTs an Alpha Progression CSV export to the import endpoint.
// Network failures and 5xx responses are retried up to 3 times with
// exponential backoff; 4xx responses fail immediately. A 207 returns the
// partial result together with ErrPartial.
func (c *Client) SendAlphaCSV(ctx context.Context, data []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.Backoff(attempt)):
			}
		}

		res, retry, err := c.send(ctx, data)
		if !retry {
			return res, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) send(ctx context.Context, data []byte) (*ingest.Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/import/alpha", bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var res ingest.Result
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, false, fmt.Errorf("decoding result: %w", err)
		}
		return &res, false, nil
	case resp.StatusCode == http.StatusMultiStatus:
		var partial struct {
			Result ingest.Result `json:"result"`
			Error  string        `json:"error"`
		}
		if err := json.Unmarshal(body, &partial); err != nil {
			return nil, false, fmt.Errorf("decoding partial result: %w", err)
		}
		return &partial.Result, false, fmt.Errorf("%w: %s", ErrPartial, partial.Error)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("import failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	default:
		return nil, false, fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}
