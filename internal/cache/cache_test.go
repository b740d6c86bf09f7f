package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/sales-dashboard-be/internal/logging"
)

func newTestCache(t *testing.T) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "reports", time.Minute, logging.Discard()), mr
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"n":1}`))
	})
}

func TestMiddlewareHitAndMiss(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	h := c.Middleware(countingHandler(&calls, http.StatusOK))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/sales/kpi?year=2023", nil))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/sales/kpi?year=2023", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":1}`, second.Body.String())
	assert.Equal(t, 1, calls)

	other := httptest.NewRecorder()
	h.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/api/sales/kpi?year=2024", nil))
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestInvalidateRetiresEntries(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	h := c.Middleware(countingHandler(&calls, http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sales/trend", nil))
	require.NoError(t, c.Invalidate(context.Background()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sales/trend", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestErrorsAreNotCached(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	h := c.Middleware(countingHandler(&calls, http.StatusBadRequest))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sales/table?page=x", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestRedisDownPassesThrough(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	calls := 0
	h := c.Middleware(countingHandler(&calls, http.StatusOK))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sales/kpi", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
}

func TestNilCachePassesThrough(t *testing.T) {
	var c *ReportCache
	calls := 0
	h := c.Middleware(countingHandler(&calls, http.StatusOK))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, calls)
	assert.NoError(t, c.Invalidate(context.Background()))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
