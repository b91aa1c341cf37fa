package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

// HTTPMessenger posts envelopes to a dashboard's inbox endpoint.
type HTTPMessenger struct {
	client *http.Client
}

// NewHTTPMessenger returns a messenger with the given request timeout.
func NewHTTPMessenger(timeout time.Duration) *HTTPMessenger {
	return &HTTPMessenger{client: &http.Client{Timeout: timeout}}
}

// Send fails when the dashboard has no inbox or does not answer 2xx,
// which is the cue to fall back to injection.
func (m *HTTPMessenger) Send(ctx context.Context, d store.Dashboard, env model.Envelope) error {
	if d.InboxURL == "" {
		return errors.New("dashboard has no inbox")
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.InboxURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inbox returned %d", resp.StatusCode)
	}
	return nil
}
