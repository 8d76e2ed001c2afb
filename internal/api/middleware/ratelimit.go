package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/chen0112/Caregiver-backend/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RateLimiter implements fixed-window rate limiting backed by Redis,
// keyed by client IP.
type RateLimiter struct {
	client       *redis.Client
	logger       zerolog.Logger
	limits       map[string]RateLimit
	whitelist    []*net.IPNet
	whitelistIPs map[string]bool
}

// NewRateLimiter creates a new rate limiter. whitelist entries may be
// plain IPs or CIDRs.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, whitelist []string) *RateLimiter {
	rl := &RateLimiter{
		client:       client,
		logger:       logger,
		whitelistIPs: make(map[string]bool),
		limits: map[string]RateLimit{
			"POST /api/accounts/register":     {10, time.Hour},
			"POST /api/accounts/verification": {5, time.Hour},
			"POST /api/accounts/signin":       {20, time.Minute},
			"POST /api/messages":              {60, time.Minute},
			"GET /api/messages":               {120, time.Minute},
			"GET /api/conversations":          {120, time.Minute},
			"POST /api/profiles":              {20, time.Hour},
			"POST /api/listings":              {20, time.Hour},
		},
	}

	for _, entry := range whitelist {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
				continue
			}
			rl.whitelist = append(rl.whitelist, ipNet)
		} else {
			rl.whitelistIPs[entry] = true
		}
	}

	return rl
}

// isWhitelisted checks if an IP is in the whitelist.
func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.whitelistIPs[ipStr] {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// match returns the limit configured for the request, if any. A pattern
// covers its own path and any sub-resources under it, so sub-paths like
// "/api/conversations/{id}/messages" inherit the "GET /api/conversations"
// limit. The longest matching pattern wins so
// "POST /api/accounts/verification" beats "POST /api/accounts".
func (rl *RateLimiter) match(r *http.Request) (string, RateLimit, bool) {
	var bestKey string
	var best RateLimit
	found := false
	for pattern, limit := range rl.limits {
		parts := strings.SplitN(pattern, " ", 2)
		if r.Method != parts[0] {
			continue
		}
		if !pathUnder(r.URL.Path, parts[1]) {
			continue
		}
		if !found || len(pattern) > len(bestKey) {
			bestKey = pattern
			best = limit
			found = true
		}
	}
	return bestKey, best, found
}

// pathUnder reports whether path equals prefix or sits below it at a
// segment boundary. "/api/messagesx" is not under "/api/messages".
func pathUnder(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Middleware enforces the configured limits. Requests to endpoints
// without a limit pass through untouched, as does everything when Redis
// is unreachable.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern, limit, ok := rl.match(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ip := RealIP(r)
		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", pattern, ip)
		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Fail open; limiting is best-effort
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, limit.Window)
		}

		remaining := int64(limit.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit.Requests) {
			metrics.RateLimitHits.WithLabelValues(pattern).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
