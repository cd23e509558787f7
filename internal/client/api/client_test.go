package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/client/metrics"
	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// fakeBackend is an in-memory product API.
type fakeBackend struct {
	mu       sync.Mutex
	products map[int64]models.Product
	nextID   int64
	hits     atomic.Int32
	last     *http.Request
	lastBody []byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{products: map[int64]models.Product{}, nextID: 1}
}

func (b *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.hits.Add(1)
			body, _ := io.ReadAll(req.Body)
			b.mu.Lock()
			b.last = req.Clone(req.Context())
			b.lastBody = body
			b.mu.Unlock()
			req.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/api/products", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		page := models.Page[models.Product]{Size: 10, TotalPages: 1}
		for _, p := range b.products {
			page.Content = append(page.Content, p)
		}
		page.TotalElements = int64(len(page.Content))
		writeJSON(w, http.StatusOK, page)
	})
	r.Get("/api/products/categories", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []string{"books", "tools"})
	})
	r.Post("/api/products", func(w http.ResponseWriter, req *http.Request) {
		var in models.ProductInput
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad payload"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		p := models.Product{ID: b.nextID, Name: in.Name, Price: in.Price, Category: in.Category, Status: in.Status,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		b.products[p.ID] = p
		b.nextID++
		writeJSON(w, http.StatusCreated, p)
	})
	r.Get("/api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		p, ok := b.lookup(req)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	r.Put("/api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		p, ok := b.lookup(req)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		var patch models.ProductPatch
		_ = json.NewDecoder(req.Body).Decode(&patch)
		p = patch.Apply(p)
		b.mu.Lock()
		b.products[p.ID] = p
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, p)
	})
	r.Delete("/api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		p, ok := b.lookup(req)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		b.mu.Lock()
		delete(b.products, p.ID)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (b *fakeBackend) lookup(req *http.Request) (models.Product, bool) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return models.Product{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	return p, ok
}

func (b *fakeBackend) lastRequest() (*http.Request, []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.lastBody
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	srv := httptest.NewServer(b.router())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, nil, nil, opts...), b
}

func TestListProducts_SendsOnlyPresentFilterFields(t *testing.T) {
	c, b := newTestClient(t)

	_, err := c.ListProducts(context.Background(), models.ProductFilter{Category: models.Ptr("tools"), Page: models.Ptr(1)})
	require.NoError(t, err)

	req, _ := b.lastRequest()
	assert.Equal(t, "category=tools&page=1", req.URL.RawQuery)
}

func TestTenantQueryParam(t *testing.T) {
	tests := []struct {
		name      string
		tenant    TenantSource
		wantQuery string
	}{
		{name: "real tenant", tenant: StaticTenant("acme"), wantQuery: "page=0&tenant=acme"},
		{name: "default tenant", tenant: StaticTenant(common.DefaultTenant), wantQuery: "page=0"},
		{name: "unknown tenant", tenant: StaticTenant(""), wantQuery: "page=0"},
		{name: "no source", tenant: nil, wantQuery: "page=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			srv := httptest.NewServer(b.router())
			defer srv.Close()
			c := NewClient(srv.URL, nil, tt.tenant)

			_, err := c.ListProducts(context.Background(), models.ProductFilter{Page: models.Ptr(0)})
			require.NoError(t, err)

			req, _ := b.lastRequest()
			assert.Equal(t, tt.wantQuery, req.URL.RawQuery)
		})
	}
}

func TestBuildURL_PreservesExistingQuery(t *testing.T) {
	c := NewClient("http://backend.local/", nil, StaticTenant("acme"))

	u, err := c.buildURL("/api/products?x=1", map[string][]string{"page": {"2"}})
	require.NoError(t, err)

	assert.Equal(t, "/api/products", u.Path)
	assert.Equal(t, "1", u.Query().Get("x"))
	assert.Equal(t, "2", u.Query().Get("page"))
	assert.Equal(t, "acme", u.Query().Get("tenant"))
}

func TestBearerHeader(t *testing.T) {
	b := newFakeBackend()
	srv := httptest.NewServer(b.router())
	defer srv.Close()

	token := ""
	c := NewClient(srv.URL, TokenFunc(func() string { return token }), nil)

	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	req, _ := b.lastRequest()
	_, present := req.Header[common.AuthorizationHeaderName]
	assert.False(t, present, "no header without a token")

	token = "abc"
	_, err = c.ListCategories(context.Background())
	require.NoError(t, err)
	req, _ = b.lastRequest()
	assert.Equal(t, "Bearer abc", req.Header.Get(common.AuthorizationHeaderName))

	token = "refreshed"
	_, err = c.ListCategories(context.Background())
	require.NoError(t, err)
	req, _ = b.lastRequest()
	assert.Equal(t, "Bearer refreshed", req.Header.Get(common.AuthorizationHeaderName), "token read per request")
}

func TestRequestHeaders(t *testing.T) {
	c, b := newTestClient(t)

	_, err := c.CreateProduct(context.Background(), models.ProductInput{Name: "Hammer", Category: "tools", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	req, body := b.lastRequest()
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	_, err = uuid.Parse(req.Header.Get(common.RequestIDHeaderName))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"name":"Hammer","price":10,"category":"tools","status":"active"}`, string(body))
}

func TestCRUDRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateProduct(ctx, models.ProductInput{Name: "Saw", Category: "tools", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := c.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Saw", got.Name)

	updated, err := c.UpdateProduct(ctx, created.ID, models.ProductPatch{Price: models.Ptr(decimal.NewFromInt(20))})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "Saw", updated.Name)

	page, err := c.ListProducts(ctx, models.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
	assert.True(t, page.Valid())

	require.NoError(t, c.DeleteProduct(ctx, created.ID))

	err = c.DeleteProduct(ctx, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateProduct_SendsOnlySuppliedFields(t *testing.T) {
	c, b := newTestClient(t)
	ctx := context.Background()
	p, err := c.CreateProduct(ctx, models.ProductInput{Name: "Saw", Category: "tools"})
	require.NoError(t, err)

	_, err = c.UpdateProduct(ctx, p.ID, models.ProductPatch{Price: models.Ptr(decimal.NewFromInt(20))})
	require.NoError(t, err)

	req, body := b.lastRequest()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.JSONEq(t, `{"price":20}`, string(body))
}

func TestClientSideValidation_NoRequest(t *testing.T) {
	c, b := newTestClient(t)

	_, err := c.CreateProduct(context.Background(), models.ProductInput{Category: "tools"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = c.UpdateProduct(context.Background(), 1, models.ProductPatch{Name: models.Ptr(" ")})
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Zero(t, b.hits.Load())
}

func TestErrorNormalisation(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantKind Kind
		sentinel error
	}{
		{name: "message field", status: 404, body: `{"message":"not found"}`, wantMsg: "not found", wantKind: KindNotFound, sentinel: common.ErrNotFound},
		{name: "unparsable body", status: 500, body: `<html>oops</html>`, wantMsg: "API error: 500 Internal Server Error", wantKind: KindHTTP, sentinel: common.ErrAPI},
		{name: "no message field", status: 422, body: `{"error":"x"}`, wantMsg: "API error: 422 Unprocessable Entity", wantKind: KindValidation, sentinel: common.ErrValidation},
		{name: "forbidden", status: 403, body: ``, wantMsg: "API error: 403 Forbidden", wantKind: KindUnauthorized, sentinel: common.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil, nil).GetProduct(context.Background(), 5)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, common.ErrAPI)
		})
	}
}

func TestNoContent_SkipsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	require.NoError(t, c.DeleteProduct(context.Background(), 1))

	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil, nil).GetProduct(context.Background(), 1)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Zero(t, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.True(t, IsRetryable(err))
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.New()
	c, _ := newTestClient(t, WithMetrics(m))

	_, err := c.GetProduct(context.Background(), 42)
	require.Error(t, err)
	_, err = c.ListCategories(context.Background())
	require.NoError(t, err)

	s, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Requests["GET /api/products/{id} 4xx"])
	assert.Equal(t, 1.0, s.Requests["GET /api/products/categories 2xx"])
}

func TestTracing_SpanAndPropagation(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, b := newTestClient(t, WithTracerProvider(tp), WithPropagator(propagation.TraceContext{}))

	_, err := c.GetProduct(context.Background(), 7)
	require.Error(t, err)

	req, _ := b.lastRequest()
	assert.NotEmpty(t, req.Header.Get("traceparent"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/products/{id}", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestRateLimit(t *testing.T) {
	c, _ := newTestClient(t, WithRateLimit(1, 1))
	require.NotNil(t, c.limiter)

	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListCategories(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransport)

	off := NewClient("http://x", nil, nil, WithRateLimit(0, 0))
	assert.Nil(t, off.limiter)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("x"), false},
		{"transport", &APIError{Kind: KindTransport}, true},
		{"5xx", &APIError{Status: 503, Kind: KindHTTP}, true},
		{"404", &APIError{Status: 404, Kind: KindNotFound}, false},
		{"validation", &APIError{Status: 400, Kind: KindValidation}, false},
		{"canceled", &APIError{Kind: KindTransport, Err: context.Canceled}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 404, StatusOf(&APIError{Status: 404}))
	assert.Zero(t, StatusOf(errors.New("x")))
}
