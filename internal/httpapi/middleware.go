package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Leganyst/docwatch/internal/identity"
	"github.com/Leganyst/docwatch/internal/model"
)

const tokenCookie = "token"

// requestLogger logs one event per request and feeds the request metrics.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.ObserveRequest(c.Request.Method, route, status, elapsed)
		}
		if route == "/health" || route == "/metrics" {
			return
		}
		s.logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// recovery turns a panic into a 500 envelope.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		s.logger.Error("http.panic", "path", c.Request.URL.Path, "panic", recovered)
		fail(c, http.StatusInternalServerError, "internal server error")
	})
}

// requireAuth resolves the credential (cookie first, then bearer header) and
// attaches the user to the request context. Any failure is 401.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.auth.Authenticate(c.Request.Context(), credential(c.Request))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), u))
		c.Next()
	}
}

func credential(r *http.Request) string {
	if ck, err := r.Cookie(tokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

// currentUser returns the user attached by requireAuth.
func currentUser(c *gin.Context) *model.User {
	u, _ := identity.FromContext(c.Request.Context())
	return u
}

// clientLimiter is a per-client-IP token bucket. Once the map reaches
// maxTrackedClients, only buckets that have refilled completely are dropped:
// a full bucket behaves exactly like a new one, so throttled clients stay
// throttled.
type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	now       func() time.Time
	limiters  map[string]*rate.Limiter
	pruneSize int
}

const maxTrackedClients = 10000

func newClientLimiter(perMinute int) *clientLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &clientLimiter{
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		now:       time.Now,
		limiters:  make(map[string]*rate.Limiter),
		pruneSize: maxTrackedClients,
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.pruneSize {
			l.prune(now)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim.AllowN(now, 1)
}

// prune drops idle buckets. When every tracked client is still active the
// map grows and the next prune waits until it has doubled.
func (l *clientLimiter) prune(now time.Time) {
	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
	l.pruneSize = max(maxTrackedClients, 2*len(l.limiters))
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.allow(c.ClientIP()) {
			fail(c, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		c.Next()
	}
}
