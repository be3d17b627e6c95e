package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// TokenSource supplies the bearer token attached to sync requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HTTPClient is the production Client over the server's HTTP sync API.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// NewHTTPClient creates a client for the server at baseURL. A nil tokens
// source sends unauthenticated requests, which the server rejects for
// everything except the connectivity probe.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger.With(slog.String("component", "sync_client")),
	}
}

// Ensure HTTPClient implements the Client interface
var _ Client = (*HTTPClient)(nil)

// Push implements Client.Push via POST /sync/push.
func (c *HTTPClient) Push(ctx context.Context, changes []ChangeRequest) (*PushResponse, error) {
	body, err := json.Marshal(PushRequest{Changes: changes})
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp PushResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pull implements Client.Pull via GET /sync/pull. A zero since omits the
// query parameter and requests the full dataset.
func (c *HTTPClient) Pull(ctx context.Context, since time.Time) (*PullResponse, error) {
	endpoint := c.baseURL + "/sync/pull"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build pull request: %w", err)
	}

	var resp PullResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping implements Client.Ping with a HEAD request to the server root.
// Any HTTP response at all counts as reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientFailure, err)
	}
	drainAndClose(resp.Body)
	return nil
}

// do sends the request with auth attached and decodes the JSON response
// into out. Transport failures and 5xx responses map to
// ErrTransientFailure; 401 and 403 map to ErrUnauthorized.
func (c *HTTPClient) do(req *http.Request, out any) error {
	if c.tokens != nil {
		token, err := c.tokens.Token(req.Context())
		if err != nil {
			return fmt.Errorf("resolve session token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientFailure, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: server returned %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: server returned %d", ErrTransientFailure, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("sync request to %s failed with status %d", req.URL.Path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// drainAndClose reads the rest of the body so the connection can be
// reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
