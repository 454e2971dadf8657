// Package backend is the REST client for the tracking backend. Every call
// is credentialed by the session cookie held in the client's cookie jar.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

const instrumentationName = "github.com/trackify-app/trackify/internal/adapter/outbound/backend"

// maxBodySize caps how much of a response is read.
const maxBodySize = 1 << 20

// Client talks to the tracking backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// Compile-time check that Client implements outbound.Backend.
var _ outbound.Backend = (*Client)(nil)

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	if c.meterProvider == nil {
		c.meterProvider = otel.GetMeterProvider()
	}

	c.tracer = c.tracerProvider.Tracer(instrumentationName)
	meter := c.meterProvider.Meter(instrumentationName)

	var err error
	c.requests, err = meter.Int64Counter("trackify.backend.requests",
		metric.WithDescription("Backend requests by route and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	c.duration, err = meter.Float64Histogram("trackify.backend.request.duration",
		metric.WithDescription("Backend request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func loginRoute(area session.Area) string {
	if area == session.AreaAdmin {
		return "/admin/login"
	}
	return "/login"
}

// Login authenticates through the area's login endpoint.
func (c *Client) Login(ctx context.Context, area session.Area, creds outbound.Credentials) (*session.Session, error) {
	route := loginRoute(area)
	body, err := c.doRequest(ctx, http.MethodPost, route, route, nil, creds)
	if err != nil {
		return nil, err
	}
	return decodeSession(body, area, route)
}

// Signup creates an ordinary account and authenticates as it.
func (c *Client) Signup(ctx context.Context, req outbound.SignupRequest) (*session.Session, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/signup", "/signup", nil, req)
	if err != nil {
		return nil, err
	}
	return decodeSession(body, session.AreaOrdinary, "/signup")
}

// Profile probes the area's "who am I" endpoint.
func (c *Client) Profile(ctx context.Context, area session.Area) (*session.Session, error) {
	route := area.ProbePath()
	body, err := c.doRequest(ctx, http.MethodGet, route, route, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeSession(body, area, route)
}

// Logout revokes the session of userID.
func (c *Client) Logout(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("id", userID)
	_, err := c.doRequest(ctx, http.MethodPost, "/logout", "/logout", q, struct{}{})
	return err
}

// UpdateLocation submits one sample and returns what the backend stored.
func (c *Client) UpdateLocation(ctx context.Context, u location.Update) (*location.PositionSample, error) {
	body, err := c.doRequest(ctx, http.MethodPut, "/location/update", "/location/update", nil, u)
	if err != nil {
		return nil, err
	}
	data := unwrapData(body, locationKeys...)
	if isNull(data) {
		// Some deployments acknowledge without echoing the document.
		return &location.PositionSample{
			Latitude:  u.Latitude,
			Longitude: u.Longitude,
			Accuracy:  u.Accuracy,
			Speed:     u.Speed,
		}, nil
	}
	var dto locationDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode location update: %w", err)
	}
	return dto.toSample(), nil
}

// ListUsers fetches the 1-indexed page n of the user directory.
func (c *Client) ListUsers(ctx context.Context, page int) (*directory.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	body, err := c.doRequest(ctx, http.MethodGet, "/admin/users", "/admin/users", q, nil)
	if err != nil {
		return nil, err
	}
	var dto usersPageDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode user directory: %w", err)
	}
	entries := dto.Data
	if entries == nil {
		entries = []directory.Entry{}
	}
	return &directory.Page{
		Number:     page,
		Entries:    entries,
		TotalPages: dto.Pagination.TotalPages,
	}, nil
}

// GetUser fetches one user's profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*inspector.Profile, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/admin/user/:id", "/admin/user/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	data := unwrapData(body, userKeys...)
	if isNull(data) {
		return nil, &APIError{Status: http.StatusNotFound, Route: "GET /admin/user/:id"}
	}
	var dto userDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return dto.toProfile(), nil
}

// GetUserLocation fetches a user's last known location. It returns nil
// without error when the user has none.
func (c *Client) GetUserLocation(ctx context.Context, userID string) (*location.PositionSample, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/admin/user-location/:id", "/admin/user-location/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	data := unwrapData(body, locationKeys...)
	if isNull(data) {
		return nil, nil
	}
	var dto locationDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode user location: %w", err)
	}
	return dto.toSample(), nil
}

func decodeSession(body []byte, area session.Area, route string) (*session.Session, error) {
	data := unwrapData(body, userKeys...)
	if isNull(data) {
		return nil, fmt.Errorf("backend %s returned no user", route)
	}
	var dto userDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode user from %s: %w", route, err)
	}
	if dto.ID == "" {
		return nil, fmt.Errorf("backend %s returned a user without id", route)
	}
	return dto.toSession(area), nil
}

// doRequest performs one request and returns the raw response body.
// route is the templated path used for spans, metrics and errors; path is
// the concrete path sent on the wire.
func (c *Client) doRequest(ctx context.Context, method, route, path string, query url.Values, body any) ([]byte, error) {
	routeLabel := method + " " + route

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, routeLabel,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
		),
	)
	defer span.End()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.record(ctx, routeLabel, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.Debug("backend request failed",
			"route", routeLabel,
			"request_id", requestID,
			"error", err,
		)
		return nil, &UnreachableError{Cause: err}
	}
	defer httpResp.Body.Close()

	status := strconv.Itoa(httpResp.StatusCode)
	c.record(ctx, routeLabel, status, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{
			Status:  httpResp.StatusCode,
			Route:   routeLabel,
			Message: extractMessage(respBody),
		}
		span.SetStatus(codes.Error, apiErr.Error())
		c.logger.Debug("backend returned error status",
			"route", routeLabel,
			"request_id", requestID,
			"status", httpResp.StatusCode,
		)
		return nil, apiErr
	}

	return respBody, nil
}

func (c *Client) record(ctx context.Context, route, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", status),
	)
	c.requests.Add(ctx, 1, attrs)
	c.duration.Record(ctx, seconds, attrs)
}

// extractMessage pulls the human-readable explanation out of an error
// body: a JSON "message" field, or the body itself when it is plain text.
func extractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil {
			return env.Message
		}
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	msg := string(trimmed)
	if strings.HasPrefix(msg, "<") {
		return ""
	}
	return msg
}

// IsCanceled reports whether err is the result of the caller giving up.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
