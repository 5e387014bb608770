package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"reelsmith/internal/progress"
	"reelsmith/internal/workflow"
)

// ErrUnavailable reports that no daemon API is configured.
var ErrUnavailable = errors.New("daemon API unavailable")

// APIError is a non-2xx reply decoded from the daemon.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 reply.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &opErr)
}

// Client talks to a running daemon over HTTP.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for the daemon listening on bind. A bare
// host:port is treated as http.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// Streaming calls block until the caller cancels, so no client timeout.
		http: &http.Client{},
	}, nil
}

// BaseURL reports the daemon root URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
		apiErr.Kind = payload.Kind
	}
	return apiErr
}

// Submit queues a render job and returns its id.
func (c *Client) Submit(ctx context.Context, req workflow.SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var resp SubmitResponse
	if err := c.do(httpReq, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Jobs lists queued and processing jobs.
func (c *Client) Jobs(ctx context.Context) ([]JobStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs", nil)
	if err != nil {
		return nil, err
	}
	var resp JobListResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Status reports a job's current state.
func (c *Client) Status(ctx context.Context, id string) (JobStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/status", nil)
	if err != nil {
		return JobStatus{}, err
	}
	var status JobStatus
	err = c.do(req, &status)
	return status, err
}

// WatchProgress streams progress events for id to fn until the terminal
// event, the stream closing, or ctx ending. When the job already finished the
// daemon refuses the stream and WatchProgress returns its final status.
func (c *Client) WatchProgress(ctx context.Context, id string, fn func(progress.Event)) (*JobStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/progress", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		var status JobStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return nil, fmt.Errorf("decode final status: %w", err)
		}
		return &status, nil
	}
	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 16*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var evt progress.Event
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &evt); err != nil {
			return nil, fmt.Errorf("decode progress event: %w", err)
		}
		if fn != nil {
			fn(evt)
		}
		if evt.Stage.Terminal() {
			return nil, nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return nil, err
	}
	return nil, ctx.Err()
}

// DownloadArtifact copies the rendered video for id into w.
func (c *Client) DownloadArtifact(ctx context.Context, id string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/artifact", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "video/mp4")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, decodeAPIError(resp)
	}
	return io.Copy(w, resp.Body)
}

// RemoveArtifact deletes the rendered video for id.
func (c *Client) RemoveArtifact(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id)+"/artifact", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Health probes daemon liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DaemonStatus fetches daemon diagnostics.
func (c *Client) DaemonStatus(ctx context.Context) (DaemonStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/status", nil)
	if err != nil {
		return DaemonStatus{}, err
	}
	var status DaemonStatus
	err = c.do(req, &status)
	return status, err
}
