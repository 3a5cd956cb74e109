package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/eventdesk/internal/config"
	"github.com/iliyamo/eventdesk/internal/logging"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	switch {
	case cw.limit <= 0:
		cw.buf.Write(b)
	case cw.size < cw.limit:
		remain := cw.limit - cw.size
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable key honoring prefix/strategy.  The
// authenticated user and that user's cache generation are always part of
// the key: every cached route in this service returns organizer-scoped data,
// and bumping the generation orphans everything cached before.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, gen string) string {
	r := c.Request()
	method := r.Method
	route := c.Path()
	query := r.URL.RawQuery

	parts := []string{cfg.Prefix, "user", userIDOr(c, "anon"), "gen", gen}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = append(parts, "route", route, "p", paramValues(c))
	case "method_route":
		parts = append(parts, "method", method, "route", route, "p", paramValues(c))
	case "method_route_query":
		parts = append(parts, "method", method, "route", route, "p", paramValues(c), "q", query)
	default: // "route_query"
		parts = append(parts, "route", route, "p", paramValues(c), "q", query)
	}

	tail := strings.Join(parts[1:], ":")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", parts[0], sum[:])
}

func paramValues(c echo.Context) string {
	return strings.Join(c.ParamValues(), "/")
}

// generationKey holds the cache generation of one user.
func generationKey(prefix, userID string) string {
	return prefix + ":gen:" + userID
}

// CacheInvalidator drops a user's cached responses by bumping the user's
// generation.  Entries written under the old generation are never read
// again and expire on their TTL.  A nil or disabled invalidator is a no-op.
type CacheInvalidator struct {
	rdb    *redis.Client
	prefix string
}

// NewCacheInvalidator returns nil when caching is disabled or rdb is nil.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix}
}

// Invalidate bumps userID's generation.  Failures are logged; the request
// that changed the data has already succeeded.
func (i *CacheInvalidator) Invalidate(ctx context.Context, userID string) {
	if i == nil || userID == "" {
		return
	}
	if err := i.rdb.Incr(context.WithoutCancel(ctx), generationKey(i.prefix, userID)).Err(); err != nil {
		log := logging.WithComponent("cache")
		log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	var hdr http.Header
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	} else {
		hdr = make(http.Header)
	}
	return status, hdr, bs[8+hlen:], true
}

// NewRedisCache caches successful responses (headers + body) in Redis.  It is
// mounted on read-heavy aggregate routes only; roster and check-in routes
// must always see fresh counts.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)
	log := logging.WithComponent("cache")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			gen, err := rdb.Get(ctx, generationKey(cfg.Prefix, userIDOr(c, "anon"))).Result()
			switch {
			case errors.Is(err, redis.Nil):
				gen = "0"
			case err != nil:
				// Without the generation a hit could be stale.
				log.Debug().Err(err).Msg("cache generation read failed")
				return next(c)
			}
			key := cacheKeyFrom(cfg, c, gen)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						// X-Cache is set below; Content-Length is recomputed.
						if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Cache") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			} else if !errors.Is(err, redis.Nil) {
				log.Debug().Err(err).Msg("cache read failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Truncated bodies are never stored.
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := make(http.Header, len(c.Response().Header()))
			for k, vals := range c.Response().Header() {
				vv := make([]string, len(vals))
				copy(vv, vals)
				hdr[k] = vv
			}
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				log.Debug().Err(err).Msg("cache write failed")
			}
			return nil
		}
	}
}
