package daemon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"maker-console/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is what the console needs from the maker daemon's HTTP API.
type Client interface {
	PostSellOrder(ctx context.Context, payload models.CfdSellOrderPayload) error
	PostCfdAction(ctx context.Context, orderID uuid.UUID, action models.CfdAction) error
	HealthCheck(ctx context.Context) error
}

// APIError is returned for any non-2xx daemon response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, msg)
}

// HTTPClient talks to the daemon over HTTP with basic auth.
type HTTPClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPClient builds a client for baseURL. Commands are never retried: a sell
// order or CFD decision must reach the daemon at most once per operator action.
func NewHTTPClient(baseURL, username, password string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "maker-console")
	if password != "" {
		c.SetBasicAuth(username, password)
	}
	return &HTTPClient{client: c, logger: logger}
}

// PostSellOrder creates or replaces the maker's sell order.
func (c *HTTPClient) PostSellOrder(ctx context.Context, payload models.CfdSellOrderPayload) error {
	c.logger.Info("posting sell order",
		zap.Float64("price", payload.Price),
		zap.Float64("min_quantity", payload.MinQuantity),
		zap.Float64("max_quantity", payload.MaxQuantity))

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/order/sell")
	return c.check("post sell order", resp, err)
}

// PostCfdAction sends an operator decision for one CFD.
func (c *HTTPClient) PostCfdAction(ctx context.Context, orderID uuid.UUID, action models.CfdAction) error {
	c.logger.Info("posting cfd action", zap.Stringer("order_id", orderID), zap.String("action", string(action)))

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"id":     orderID.String(),
			"action": string(action),
		}).
		Post("/api/cfd/{id}/{action}")
	return c.check(fmt.Sprintf("post %s", action), resp, err)
}

// HealthCheck pings /api/alive.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/api/alive")
	return c.check("health check", resp, err)
}

func (c *HTTPClient) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsSuccess() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		c.logger.Warn("daemon request failed", zap.String("op", op), zap.Error(apiErr))
		return fmt.Errorf("%s: %w", op, apiErr)
	}
	return nil
}
