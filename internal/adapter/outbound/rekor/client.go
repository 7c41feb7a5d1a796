// Package rekor submits signed audit entries to a Rekor-style transparency
// log. Without a configured URL the client runs offline and appends entries
// to the local audit log instead.
package rekor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// DefaultTimeout bounds one transparency call.
const DefaultTimeout = 5 * time.Second

// OfflinePrefix marks references that point at the local offline log.
const OfflinePrefix = "offline://"

// ErrNotConfigured is returned when a remote check is requested without a
// transparency URL.
var ErrNotConfigured = errors.New("cannot verify entry without Rekor URL")

const maxResponseBytes = 1 << 20

// Client talks to one transparency log endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	offline    outbound.AuditLog
}

var _ outbound.TransparencyLog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a client for the given base URL. An empty URL selects
// offline mode backed by the given log.
func NewClient(baseURL string, offline outbound.AuditLog, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		offline:    offline,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Offline reports whether the client has no remote endpoint.
func (c *Client) Offline() bool {
	return c.url == ""
}

// SubmitEntry stores the entry and returns its verification reference. In
// offline mode the entry lands in the local log and the reference names
// that file.
func (c *Client) SubmitEntry(ctx context.Context, entry any) (string, error) {
	if c.Offline() {
		if err := c.offline.Append(entry); err != nil {
			return "", fmt.Errorf("offline transparency log: %w", err)
		}
		return OfflinePrefix + c.offline.Path(), nil
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode transparency entry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v1/log/entries", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transparency request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit transparency entry: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read transparency response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("Rekor error %d: %s", resp.StatusCode, text)
	}

	var data map[string]any
	if err := json.Unmarshal(text, &data); err != nil {
		return "", fmt.Errorf("decode transparency response: %w", err)
	}
	if id, ok := data["uuid"].(string); ok {
		return id, nil
	}
	return "unknown", nil
}

// VerifyEntry reports whether the log includes the referenced entry.
// Offline references verify by the backing file existing.
func (c *Client) VerifyEntry(ctx context.Context, reference string) (bool, error) {
	if strings.HasPrefix(reference, OfflinePrefix) {
		_, err := os.Stat(strings.TrimPrefix(reference, OfflinePrefix))
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect offline log: %w", err)
	}
	if c.Offline() {
		return false, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/v1/log/entries/"+url.PathEscape(reference), nil)
	if err != nil {
		return false, fmt.Errorf("build transparency request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify transparency entry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode == http.StatusOK, nil
}
