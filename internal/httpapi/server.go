// Package httpapi exposes the REST surface over gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/service"
)

// RequestObserver receives per-request measurements.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Domain string
	Secure bool
	TTL    time.Duration
}

type Deps struct {
	Auth          *service.AuthService
	Documents     *service.DocumentService
	Bookings      *service.BookingService
	Payments      *service.PaymentService
	Subscriptions *service.SubscriptionService

	Logger         pslog.Logger
	Metrics        RequestObserver
	MetricsHandler http.Handler
	// Ping reports storage health for /health. Optional.
	Ping func(ctx context.Context) error

	Production        bool
	CORSOrigins       []string
	Cookie            CookieConfig
	AuthRatePerMinute int
}

type Server struct {
	auth     *service.AuthService
	docs     *service.DocumentService
	bookings *service.BookingService
	payments *service.PaymentService
	subs     *service.SubscriptionService

	logger     pslog.Logger
	metrics    RequestObserver
	ping       func(ctx context.Context) error
	production bool
	cookie     CookieConfig
	limiter    *clientLimiter

	router *gin.Engine
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = pslog.NoopLogger()
	}
	if d.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		auth:       d.Auth,
		docs:       d.Documents,
		bookings:   d.Bookings,
		payments:   d.Payments,
		subs:       d.Subscriptions,
		logger:     d.Logger,
		metrics:    d.Metrics,
		ping:       d.Ping,
		production: d.Production,
		cookie:     d.Cookie,
		limiter:    newClientLimiter(d.AuthRatePerMinute),
		router:     gin.New(),
	}

	r := s.router
	r.Use(s.recovery(), s.requestLogger())
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})

	r.GET("/health", s.health)
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", s.rateLimit(), s.signup)
		authGroup.POST("/login", s.rateLimit(), s.login)
		authGroup.POST("/logout", s.logout)
		authGroup.POST("/oauth/google", s.rateLimit(), s.oauth(model.AuthProviderGoogle))
		authGroup.POST("/oauth/facebook", s.rateLimit(), s.oauth(model.AuthProviderFacebook))
		authGroup.GET("/me", s.requireAuth(), s.me)
	}

	r.GET("/notifications/public-key", s.publicKey)

	secured := r.Group("")
	secured.Use(s.requireAuth())
	{
		secured.GET("/documents", s.listDocuments)
		secured.POST("/documents", s.createDocument)
		secured.PUT("/documents/:id", s.updateDocument)
		secured.DELETE("/documents/:id", s.deleteDocument)

		secured.GET("/bookings", s.listBookings)
		secured.POST("/bookings", s.createBooking)
		secured.PUT("/bookings/:id/cancel", s.cancelBooking)

		secured.POST("/payments/verify", s.verifyPayment)

		secured.POST("/notifications/subscribe", s.subscribe)
		secured.POST("/notifications/opt-in", s.optIn)
		secured.POST("/notifications/opt-out", s.optOut)
		secured.POST("/notifications/unsubscribe", s.unsubscribe)
	}
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	db := "up"
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn("http.health.db_down", "error", err)
			db = "down"
		}
	}
	respond(c, http.StatusOK, "ok", gin.H{
		"status":   "ok",
		"database": db,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
