// Package backend is the client for the remote applications API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobtracker/internal/model"
)

const (
	applicationsPath = "/api/applications"
	healthPath       = "/api/health"
	defaultTimeout   = 15 * time.Second
	maxErrorBody     = 512
)

// ErrDuplicate is returned when the backend already holds the application
// (HTTP 409).
var ErrDuplicate = errors.New("application already exists")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client talks to one backend base URL. It is safe for concurrent use.
type Client struct {
	BaseURL string
	client  *http.Client
}

// New constructs a client for baseURL. A zero timeout selects the default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type listResponse struct {
	Applications []model.JobRecord `json:"applications"`
}

type createResponse struct {
	Data model.JobRecord `json:"data"`
}

// List returns every application the backend holds.
func (c *Client) List(ctx context.Context) ([]model.JobRecord, error) {
	var out listResponse
	if err := c.do(ctx, http.MethodGet, applicationsPath, nil, &out); err != nil {
		return nil, err
	}
	if out.Applications == nil {
		out.Applications = []model.JobRecord{}
	}
	return out.Applications, nil
}

// Create posts rec without its identity and timestamps and returns the
// stored record. A 409 is reported as ErrDuplicate.
func (c *Client) Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error) {
	var out createResponse
	if err := c.do(ctx, http.MethodPost, applicationsPath, rec.ForCreate(), &out); err != nil {
		return model.JobRecord{}, err
	}
	// Some deployments answer 201 with an empty body.
	if out.Data.ID == "" && !out.Data.Usable() {
		return rec, nil
	}
	return out.Data, nil
}

// Update sends a partial update for id.
func (c *Client) Update(ctx context.Context, id string, patch model.Patch) error {
	return c.do(ctx, http.MethodPut, applicationsPath+"/"+url.PathEscape(id), patch, nil)
}

// Delete removes id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, applicationsPath+"/"+url.PathEscape(id), nil, nil)
}

// Health returns nil if the backend answered its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, healthPath, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	reqURL := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode == http.StatusConflict {
		return ErrDuplicate
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &StatusError{Method: method, URL: reqURL, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}
