package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// DefaultPath is where the maker daemon serves its event stream.
const DefaultPath = "/api/feed"

var errStreamClosed = errors.New("event stream closed by server")

// Handler receives every complete event in arrival order.
type Handler func(Event)

// Client keeps a subscription to the daemon's server-sent event stream alive.
type Client struct {
	http   *resty.Client
	path   string
	retry  *backoff.Backoff
	logger *zap.Logger

	// OnConnect, if set, is called each time a stream is established.
	OnConnect func()
}

// NewClient builds a feed client. The HTTP client has no overall timeout since the
// stream is long-lived; cancelling the Run context is what ends it.
func NewClient(baseURL, username, password string, minBackoff, maxBackoff time.Duration, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetHeader("User-Agent", "maker-console")
	if password != "" {
		c.SetBasicAuth(username, password)
	}
	return &Client{
		http: c,
		path: DefaultPath,
		retry: &backoff.Backoff{
			Min:    minBackoff,
			Max:    maxBackoff,
			Factor: 2,
			Jitter: true,
		},
		logger: logger,
	}
}

// Run subscribes and resubscribes until ctx is cancelled. It only returns once
// ctx is done.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	for {
		connected, err := c.stream(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			c.retry.Reset()
		}
		wait := c.retry.Duration()
		c.logger.Warn("feed disconnected, reconnecting",
			zap.Error(err), zap.Duration("wait", wait), zap.Float64("attempt", c.retry.Attempt()))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// stream runs one subscription. connected reports whether the server accepted it.
func (c *Client) stream(ctx context.Context, handle Handler) (connected bool, err error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.path)
	if err != nil {
		return false, fmt.Errorf("connect feed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return false, fmt.Errorf("connect feed: status %d: %s", resp.StatusCode(), strings.TrimSpace(string(snippet)))
	}

	c.logger.Info("feed connected", zap.String("path", c.path))
	if c.OnConnect != nil {
		c.OnConnect()
	}

	if err := ReadEvents(body, handle); err != nil {
		return true, err
	}
	return true, errStreamClosed
}
