package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPExporter POSTs each snapshot as a JSON document to a collector
// endpoint. The client timeout bounds how long one export can stall the
// simulation loop; a slow collector throttles sampling but can never hang it
// forever.
type HTTPExporter struct {
	url    string
	client *http.Client
}

// NewHTTPExporter creates an HTTP exporter targeting url. A zero timeout
// defaults to 30 seconds.
func NewHTTPExporter(url string, timeout time.Duration) *HTTPExporter {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPExporter{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Export sends the snapshot. Network errors and non-2xx responses are
// retryable; an encoding failure is fatal.
func (e *HTTPExporter) Export(ctx context.Context, snap *Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return Fatal(fmt.Errorf("failed to encode snapshot: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach collector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collector rejected snapshot: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}
