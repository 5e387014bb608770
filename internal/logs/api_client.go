package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/api"
	"reelsmith/internal/logging"
)

var ErrAPIUnavailable = errors.New("log API unavailable")

type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

type StreamQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	JobID     string
	Level     string
}

// NewStreamClient returns nil when bind is empty.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
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

	return &StreamClient{
		base:  base,
		token: strings.TrimSpace(token),
		// Follow mode blocks server-side until events arrive.
		http: &http.Client{},
	}, nil
}

func (q StreamQuery) values() url.Values {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if v := strings.TrimSpace(q.Component); v != "" {
		values.Set("component", v)
	}
	if v := strings.TrimSpace(q.JobID); v != "" {
		values.Set("job", v)
	}
	if v := strings.TrimSpace(q.Level); v != "" {
		values.Set("level", v)
	}
	return values
}

// Fetch reads one page of events.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	if c == nil {
		return api.LogStreamResponse{}, ErrAPIUnavailable
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: q.values().Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return api.LogStreamResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogStreamResponse{}, err
	}
	return payload, nil
}

// Follow prints the tail selected by q and then long-polls for new events,
// handing each to fn, until ctx ends.
func (c *StreamClient) Follow(ctx context.Context, q StreamQuery, fn func(logging.LogEvent)) error {
	first := q
	first.Follow = false
	first.Tail = first.Since == 0
	page, err := c.Fetch(ctx, first)
	if err != nil {
		return err
	}
	for _, evt := range page.Events {
		fn(evt)
	}
	cursor := page.Next

	q.Tail = false
	q.Follow = true
	for {
		q.Since = cursor
		page, err := c.Fetch(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, evt := range page.Events {
			fn(evt)
		}
		if page.Next > cursor {
			cursor = page.Next
			continue
		}
		// Nothing new and no progress; back off briefly before re-polling.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Format renders evt as "15:04:05 LEVEL [component] job msg key=value".
func Format(evt logging.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(evt.Level))
	if evt.Component != "" {
		fmt.Fprintf(&b, " [%s]", evt.Component)
	}
	if subject := logging.FormatSubject(evt.JobID, evt.Stage, evt.Scene); subject != "" {
		b.WriteByte(' ')
		b.WriteString(subject)
	}
	b.WriteByte(' ')
	b.WriteString(evt.Message)
	for _, detail := range evt.Details {
		fmt.Fprintf(&b, " %s=%s", detail.Label, detail.Value)
	}
	return b.String()
}

func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
