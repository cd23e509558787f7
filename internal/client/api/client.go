package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/client/metrics"
	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/client/tenant"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/dmitrijs2005/prodcat/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	tracerName      = "github.com/dmitrijs2005/prodcat/internal/client/api"
	maxErrorBody    = 64 << 10
	productsPath    = "/api/products"
	productPath     = "/api/products/{id}"
	categoriesPath  = "/api/products/categories"
	defaultTimeout  = 30 * time.Second
	contentTypeJSON = "application/json"
)

// Catalog is the set of backend operations the rest of the client uses.
type Catalog interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]string, error)
}

// TokenSource yields the current access token, or "" when there is none.
type TokenSource interface {
	Token() string
}

// TenantSource yields the current tenant id.
type TenantSource interface {
	Tenant() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// TenantFunc adapts a function to TenantSource.
type TenantFunc func() string

func (f TenantFunc) Tenant() string { return f() }

// StaticTenant always resolves to the same tenant.
type StaticTenant string

func (s StaticTenant) Tenant() string { return string(s) }

type Client struct {
	baseURL    string
	http       *http.Client
	tokens     TokenSource
	tenants    TenantSource
	log        logging.Logger
	metrics    metrics.Recorder
	limiter    *rate.Limiter
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithRateLimit caps outbound requests at rps per second. rps <= 0 disables
// the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Client) { c.propagator = p }
}

// NewClient builds a client for the backend at baseURL. tokens and tenants
// may be nil.
func NewClient(baseURL string, tokens TokenSource, tenants TenantSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		tenants:    tenants,
		log:        logging.Discard(),
		metrics:    metrics.Nop{},
		tracer:     otel.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error) {
	var page models.Page[models.Product]
	if err := c.do(ctx, http.MethodGet, productsPath, productsPath, filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, productPath, productURL(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct validates in before sending; a rejected payload never
// reaches the backend.
func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}
	var p models.Product
	if err := c.do(ctx, http.MethodPost, productsPath, productsPath, nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct sends only the fields set in patch.
func (c *Client) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	if err := patch.Validate(); err != nil {
		return nil, validationError(err)
	}
	var p models.Product
	if err := c.do(ctx, http.MethodPut, productPath, productURL(id), nil, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, productPath, productURL(id), nil, nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.do(ctx, http.MethodGet, categoriesPath, categoriesPath, nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func productURL(id int64) string {
	return fmt.Sprintf("%s/%d", productsPath, id)
}

// do runs one backend call. endpoint is the route template used for spans
// and metrics; path is the concrete request path.
func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, err := c.send(ctx, method, endpoint, path, query, body, out)

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.template", endpoint),
		attribute.Int("http.response.status_code", status),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, method, endpoint, path string, query url.Values, body, out any) (int, error) {
	u, err := c.buildURL(path, query)
	if err != nil {
		return 0, transportError(err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, &APIError{Kind: KindValidation, Message: fmt.Sprintf("encode request body: %v", err), Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, transportError(err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, transportError(err)
		}
	}

	log := c.log.With("method", method, "endpoint", endpoint, "request_id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(method, endpoint, 0, elapsed)
		log.Warn(ctx, "backend unreachable", "error", err)
		return 0, transportError(err)
	}
	defer resp.Body.Close()

	c.metrics.RecordRequest(method, endpoint, resp.StatusCode, elapsed)
	log.Debug(ctx, "backend response", "status", resp.StatusCode, "duration", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp)
		log.Warn(ctx, "backend error", "status", resp.StatusCode, "message", apiErr.Message)
		return resp.StatusCode, apiErr
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &APIError{
			Status:  resp.StatusCode,
			Kind:    KindHTTP,
			Message: fmt.Sprintf("decode response: %v", err),
			Err:     err,
		}
	}
	return resp.StatusCode, nil
}

// buildURL joins path to the base URL and merges query, keeping any query
// string already present. The tenant is added last.
func (c *Client) buildURL(path string, query url.Values) (*url.URL, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.tenants != nil {
		if t := c.tenants.Tenant(); tenant.IsSendable(t) {
			q.Set(common.TenantQueryParam, t)
		}
	}
	u.RawQuery = q.Encode()
	return u, nil
}

type errorBody struct {
	Message string `json:"message"`
}

func errorFromResponse(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			apiErr.Message = eb.Message
			return apiErr
		}
	}

	apiErr.Message = fmt.Sprintf("API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return apiErr
}
