// Package api is the HTTP client for the sector-intelligence backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"sector-intel/models"
	"sector-intel/telemetry"
)

// Client talks JSON to the backend. It never retries or caches; callers
// layer that on top.
type Client struct {
	httpClient *http.Client
	timeout    *time.Duration
	baseURL    string
	headers    map[string]string
	log        *zap.Logger
	tracer     trace.Tracer
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the overall request timeout. Zero means none. The
// timeout is applied to a copy of the HTTP client, whichever option order
// is used.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = &timeout
	}
}

func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    "http://localhost:8000",
		headers:    map[string]string{"Accept": "application/json"},
		log:        zap.NewNop(),
		tracer:     telemetry.Tracer("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != nil {
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetInitData loads the dashboard: every sector with metrics for the window
// and the time of the last pipeline run.
func (c *Client) GetInitData(ctx context.Context, days int) (*models.InitData, error) {
	q := url.Values{"days": {strconv.Itoa(days)}}
	var out models.InitData
	if err := c.do(ctx, "GetInitData", http.MethodGet, "/api/init", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSectorDetail loads one sector. signalType "all" or "" requests every
// signal. A missing sector yields an error for which IsNotFound is true.
func (c *Client) GetSectorDetail(ctx context.Context, sectorID string, days int, signalType string) (*models.SectorDetail, error) {
	q := url.Values{"days": {strconv.Itoa(days)}}
	if signalType != "" && signalType != "all" {
		q.Set("signal_type", signalType)
	}
	var out models.SectorDetail
	path := "/api/sectors/" + url.PathEscape(sectorID)
	if err := c.do(ctx, "GetSectorDetail", http.MethodGet, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunPipeline triggers a full backend refresh and blocks until it finishes.
func (c *Client) RunPipeline(ctx context.Context) (*models.PipelineRunResult, error) {
	var out models.PipelineRunResult
	if err := c.do(ctx, "RunPipeline", http.MethodPost, "/api/pipeline/run", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshFinancials refreshes only the ETF figures.
func (c *Client) RefreshFinancials(ctx context.Context) (*models.FinancialsRefresh, error) {
	var out models.FinancialsRefresh
	if err := c.do(ctx, "RefreshFinancials", http.MethodPost, "/api/pipeline/financials", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSignalTypes returns the backend's signal type codes and descriptions.
func (c *Client) GetSignalTypes(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := c.do(ctx, "GetSignalTypes", http.MethodGet, "/api/config/signal-types", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "Health", http.MethodGet, "/api/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("backend reports status %q", out.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "api."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.log.Debug("backend request",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	return nil
}

// errorDetail extracts FastAPI's {"detail": ...} message, falling back to
// the raw body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(payload.Detail, &msg); err == nil {
			return msg
		}
		return string(payload.Detail)
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
