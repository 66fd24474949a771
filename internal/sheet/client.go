// Package sheet implements the HTTP client for the remote snapshot store.
//
// The remote store is a spreadsheet-backed web app (a Google Apps Script
// deployment) that exposes two plain request/response operations:
//   - GET  <url>            - full completion snapshot as a nested JSON map
//   - POST <url>            - batch write of collapsed edits
//
// The store offers no transactions, no ordering guarantees across calls, and
// no read-after-write guarantee: a snapshot fetched right after a push may not
// yet reflect it. Callers own that reconciliation; this package only moves
// bytes and validates shapes.
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseSize limits response body reads to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// ErrNotConfigured is returned when no sheet URL has been set. The sync
// engine treats it as "permanently offline" rather than a transient failure.
var ErrNotConfigured = errors.New("sheet URL not configured")

// Client talks to the spreadsheet web app.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a sheet client for the given web app URL.
// An empty URL produces a client whose calls fail with ErrNotConfigured.
func New(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewWithTimeout creates a sheet client with a custom request timeout.
func NewWithTimeout(url string, timeout time.Duration) *Client {
	c := New(url)
	c.httpClient.Timeout = timeout
	return c
}

// Configured reports whether a remote URL has been set.
func (c *Client) Configured() bool {
	return c.url != ""
}

// pushRequest is the POST body for a batch write.
type pushRequest struct {
	Edits []pushEdit `json:"edits"`
}

// pushEdit is one collapsed edit on the wire. LoggedAt lets the store apply
// last-timestamp-wins across devices.
type pushEdit struct {
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
	TaskID   string `json:"task_id"`
	Value    bool   `json:"value"`
	LoggedAt string `json:"logged_at"`
}

// FetchSnapshot retrieves the full remote completion map.
//
// The response must be a well-formed nested map of date -> member -> task ->
// bool; anything else (including non-2xx statuses and malformed date keys) is
// an error and the caller must leave local state untouched.
func (c *Client) FetchSnapshot(ctx context.Context) (checklist.CompletionMap, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("snapshot fetch returned status %d", resp.StatusCode)
	}

	var snapshot checklist.CompletionMap
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("malformed snapshot response: %w", err)
	}
	if snapshot == nil {
		snapshot = make(checklist.CompletionMap)
	}

	for date := range snapshot {
		if !checklist.ValidDate(date) {
			return nil, fmt.Errorf("malformed snapshot response: invalid date key %q", date)
		}
	}

	return snapshot, nil
}

// PushEdits delivers a collapsed batch of edits to the remote store.
//
// The write is best-effort: the store may partially apply the batch even when
// this returns an error, so the caller must retry the whole collapsed set
// until a success is reported.
func (c *Client) PushEdits(ctx context.Context, edits []checklist.Edit) error {
	if c.url == "" {
		return ErrNotConfigured
	}
	if len(edits) == 0 {
		return nil
	}

	payload := pushRequest{Edits: make([]pushEdit, 0, len(edits))}
	for i := range edits {
		e := &edits[i]
		payload.Edits = append(payload.Edits, pushEdit{
			Date:     e.Date,
			MemberID: e.MemberID,
			TaskID:   e.TaskID,
			Value:    e.Value,
			LoggedAt: e.LoggedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal edit batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("edit push failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("edit push returned status %d", resp.StatusCode)
	}

	return nil
}
