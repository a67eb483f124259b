package httpserver

import (
	"net/http"

	"github.com/yndnr/sidermem-go/internal/core/auth"
	"github.com/yndnr/sidermem-go/internal/server/httpserver/handler"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves health and admin endpoints.
	Handler handler.Config

	// Metrics serves /metrics. Nil disables the endpoint.
	Metrics http.Handler

	// Verifier protects the admin API, and /metrics when
	// MetricsAuthRequired is set. Nil leaves them open.
	Verifier auth.Verifier

	// MetricsAuthRequired indicates if /metrics endpoint requires authentication.
	MetricsAuthRequired bool

	// AdminAllowList is the IP/CIDR allowlist for admin API (empty = no restriction).
	AdminAllowList []string

	// RateLimit is the admin API rate limit per IP (requests/second). Zero disables it.
	RateLimit float64

	// Logger for request logging.
	Logger logger.Logger
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit: 10,
	}
}

// NewRouter creates the admin HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	hcfg := cfg.Handler
	if hcfg.Logger == nil {
		hcfg.Logger = log
	}
	h := handler.New(hcfg)

	// Order: RequestID -> Recover -> AccessLog -> route specific -> Handler
	base := []Middleware{RequestID(), Recover(log), AccessLog(log)}

	mux := http.NewServeMux()

	// Health endpoints - no authentication required
	health := Chain(h, base...)
	mux.Handle("GET /healthz", health)
	mux.Handle("GET /readyz", health)

	if cfg.Metrics != nil {
		var verifier auth.Verifier
		if cfg.MetricsAuthRequired {
			verifier = cfg.Verifier
		}
		mux.Handle("GET /metrics", Chain(cfg.Metrics, append(base, BasicAuth(verifier, "metrics"))...))
	}

	admin := append([]Middleware{}, base...)
	if len(cfg.AdminAllowList) > 0 {
		admin = append(admin, NetworkACL(&NetworkACLConfig{
			AllowList: cfg.AdminAllowList,
			Logger:    log,
		}))
	}
	if cfg.RateLimit > 0 {
		admin = append(admin, RateLimit(cfg.RateLimit, 0))
	}
	admin = append(admin, BasicAuth(cfg.Verifier, "admin"))
	adminHandler := Chain(h, admin...)

	mux.Handle("GET /admin/v1/status/summary", adminHandler)
	mux.Handle("POST /admin/v1/gc/trigger", adminHandler)

	return mux
}
