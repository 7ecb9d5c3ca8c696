package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// HTTPClient implements DataSource by calling the liftlog REST API with a
// bearer token. Used when the MCP binary runs locally (stdio) but the data
// lives on a remote server.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. token
// may be empty when the server identifies callers another way (tailscale,
// dev mode).
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var out []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	var out []models.WorkoutTemplate
	if err := c.get(ctx, "/api/v1/templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, limit int) ([]models.WorkoutSession, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out []models.WorkoutSession
	if err := c.get(ctx, "/api/v1/sessions", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id string) (*models.WorkoutSession, error) {
	var out models.WorkoutSession
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListSessionSets(ctx context.Context, sessionID string) ([]models.WorkoutSet, error) {
	var out []models.WorkoutSet
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/sets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ExerciseProgress(ctx context.Context, exerciseID string, days int) ([]models.ProgressPoint, error) {
	params := url.Values{}
	params.Set("days", strconv.Itoa(days))
	var out struct {
		Points []models.ProgressPoint `json:"points"`
	}
	if err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(exerciseID)+"/progress", params, &out); err != nil {
		return nil, err
	}
	return out.Points, nil
}
