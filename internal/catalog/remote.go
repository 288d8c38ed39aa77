package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SnapshotPath is where the published catalog lives under the remote base URL
const SnapshotPath = "/products.json"

var ErrRemoteUnavailable = errors.New("remote catalog unavailable")

// RemoteClient fetches the published catalog snapshot
type RemoteClient struct {
	baseURL string
	client  *http.Client
}

// NewRemoteClient creates a client for the snapshot under baseURL. A nil
// client gets a default one bounded by timeout.
func NewRemoteClient(baseURL string, client *http.Client, timeout time.Duration) *RemoteClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// URL returns the full snapshot address
func (c *RemoteClient) URL() string {
	return c.baseURL + SnapshotPath
}

// Fetch issues a single GET for the snapshot. There is no retry.
func (c *RemoteClient) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ErrRemoteUnavailable, err)
	}
	return &snapshot, nil
}
