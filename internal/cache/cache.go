// Package cache stores rendered report responses in Redis. Entries are keyed
// by a generation counter that every successful sync bumps, so stale reports
// simply stop being addressed and expire on their own.
package cache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hongminglow/sales-dashboard-be/internal/logging"
)

const headerName = "X-Cache"

// ReportCache is safe to use as a nil pointer: every method then passes through.
type ReportCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    logging.Logger
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, log logging.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logging.Discard()
	}
	return &ReportCache{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

// Invalidate retires every cached report.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

// Middleware serves GET responses from Redis and stores 200 responses on miss.
// Redis failures degrade to uncached handling.
func (c *ReportCache) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		gen, err := c.generation(ctx)
		if err != nil {
			c.log.Warn(ctx, "report cache unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		key := c.entryKey(gen, r)

		if body, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(headerName, "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		} else if !errors.Is(err, redis.Nil) {
			c.log.Warn(ctx, "report cache read failed", "error", err)
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set(headerName, "MISS")
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK {
			if err := c.rdb.Set(context.WithoutCancel(ctx), key, rec.buf.Bytes(), c.ttl).Err(); err != nil {
				c.log.Warn(ctx, "report cache write failed", "error", err)
			}
		}
	})
}

func (c *ReportCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *ReportCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *ReportCache) entryKey(gen int64, r *http.Request) string {
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return c.prefix + ":" + strconv.FormatInt(gen, 10) + ":" + fmt.Sprintf("%x", sum[:])
}

// recorder tees the response body so it can be stored after the handler ran.
type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}
