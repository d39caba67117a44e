// Package report delivers abuse reports for banned sources to an external
// HTTP endpoint. Delivery is best-effort: the classification loop never
// blocks on a slow or broken receiver beyond the configured timeout.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds one report delivery.
const DefaultTimeout = 10 * time.Second

// #region incident

// Incident is the document posted for a newly banned source.
type Incident struct {
	ID         string    `json:"id"`
	Addr       string    `json:"addr"`
	Subject    string    `json:"subject"`
	Strikes    int       `json:"strikes"`
	ReportedAt time.Time `json:"reported_at"`
}

// NewIncident stamps an incident with a fresh UUID and UTC timestamp.
func NewIncident(addr, subject string, strikes int) Incident {
	return Incident{
		ID:         uuid.New().String(),
		Addr:       addr,
		Subject:    subject,
		Strikes:    strikes,
		ReportedAt: time.Now().UTC(),
	}
}

// #endregion incident

// #region reporter

// Reporter delivers incidents.
type Reporter interface {
	Report(ctx context.Context, inc Incident) error
}

// HTTPReporter posts incidents as JSON.
type HTTPReporter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPReporter builds a reporter for endpoint. A non-positive timeout
// falls back to DefaultTimeout.
func NewHTTPReporter(endpoint string, timeout time.Duration) *HTTPReporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPReporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Report posts the incident and fails on any non-2xx response.
func (r *HTTPReporter) Report(ctx context.Context, inc Incident) error {
	body, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("encode incident: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("report rejected: status %d", resp.StatusCode)
	}
	return nil
}

// #endregion reporter
