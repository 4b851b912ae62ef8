// Package client is the HTTP client used by the timer and MCP command-line
// tools to talk to a liftlog server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/liftlog/liftlog/internal/models"
	"github.com/liftlog/liftlog/internal/stats"
)

// Client sends requests to the liftlog server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the server at serverURL. An empty apiKey
// sends no X-API-Key header (tailnet-gated deployments need none).
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = string(raw)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// GetSession fetches a full session graph.
func (c *Client) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	var session models.WorkoutSession
	err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID.String(), nil, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// StartRest opens the rest window on a set.
func (c *Client) StartRest(ctx context.Context, sessionID, exerciseID, setID uuid.UUID) (*models.Set, error) {
	var set models.Set
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%s/sets/%s/rest/start", sessionID, exerciseID, setID)
	if err := c.do(ctx, http.MethodPost, path, nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// EndRest closes the rest window on a set.
func (c *Client) EndRest(ctx context.Context, sessionID, exerciseID, setID uuid.UUID) (*models.Set, error) {
	var set models.Set
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%s/sets/%s/rest/end", sessionID, exerciseID, setID)
	if err := c.do(ctx, http.MethodPost, path, nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func rangeQuery(start, end time.Time) string {
	q := url.Values{}
	q.Set("start_date", start.UTC().Format(time.RFC3339))
	q.Set("end_date", end.UTC().Format(time.RFC3339))
	return "?" + q.Encode()
}

// Overview fetches range-wide training aggregates. The user is resolved by
// the server from the connection identity; userID is accepted only to match
// the local data source signature.
func (c *Client) Overview(ctx context.Context, userID int, start, end time.Time) (*stats.Overview, error) {
	var overview stats.Overview
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats/overview"+rangeQuery(start, end), nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

// Trend fetches a bucketed trend series for one metric.
func (c *Client) Trend(ctx context.Context, userID int, start, end time.Time, metric string) (*stats.TrendSeries, error) {
	q := url.Values{}
	q.Set("metric", metric)
	q.Set("start_date", start.UTC().Format(time.RFC3339))
	q.Set("end_date", end.UTC().Format(time.RFC3339))

	var series stats.TrendSeries
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats/trends?"+q.Encode(), nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// PersonalRecords fetches all-time records per exercise.
func (c *Client) PersonalRecords(ctx context.Context, userID int) ([]stats.PersonalRecord, error) {
	var records []stats.PersonalRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats/records", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MuscleGroups fetches per-muscle-group activity for a range.
func (c *Client) MuscleGroups(ctx context.Context, userID int, start, end time.Time) ([]stats.MuscleGroupActivity, error) {
	var groups []stats.MuscleGroupActivity
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats/muscle-groups"+rangeQuery(start, end), nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Summary fetches the combined progress summary for a range.
func (c *Client) Summary(ctx context.Context, userID int, start, end time.Time) (*stats.Summary, error) {
	var summary stats.Summary
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats/summary"+rangeQuery(start, end), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
