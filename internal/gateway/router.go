package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vyrodovalexey/opagate/internal/auth"
	"github.com/vyrodovalexey/opagate/internal/authz"
	"github.com/vyrodovalexey/opagate/internal/health"
	"github.com/vyrodovalexey/opagate/internal/middleware"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

// Health endpoint paths.
const (
	PathHealth = "/health"
	PathReady  = "/ready"
	PathLive   = "/live"
)

// RouterConfig holds the components of the public router. Only Enforcer
// and Health are required.
type RouterConfig struct {
	Logger            observability.Logger
	Metrics           *observability.Metrics
	Tracer            *observability.Tracer
	MiddlewareMetrics *middleware.Metrics
	CORS              middleware.CORSConfig
	Health            *health.Checker

	// Authenticator validates bearer tokens. Nil leaves every caller
	// anonymous.
	Authenticator auth.Authenticator

	Enforcer *authz.Enforcer

	// Upstream receives authorized requests. Nil answers them with 204.
	Upstream http.Handler
}

// NewRouter builds the public router.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Enforcer == nil {
		return nil, ErrNoEnforcer
	}
	if cfg.Health == nil {
		return nil, ErrNoHealthChecker
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.MiddlewareMetrics == nil {
		cfg.MiddlewareMetrics = middleware.NewMetrics("opagate", nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger, cfg.MiddlewareMetrics))
	r.Use(middleware.RequestID())
	if cfg.Tracer != nil {
		r.Use(observability.TracingMiddleware(cfg.Tracer))
	}
	if cfg.Metrics != nil {
		r.Use(observability.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.Logging(cfg.Logger, PathHealth, PathReady, PathLive))
	r.Use(middleware.CORS(cfg.CORS, cfg.MiddlewareMetrics))

	mountHealth(r, cfg.Health)

	r.Group(func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(cfg.Authenticator.Middleware())
		}
		r.Use(cfg.Enforcer.Middleware())

		upstream := cfg.Upstream
		if upstream == nil {
			upstream = http.HandlerFunc(noContent)
		}
		r.Handle("/*", upstream)
	})

	return r, nil
}

// NewAdminRouter builds the router of the metrics listener.
func NewAdminRouter(metrics *observability.Metrics, metricsPath string, checker *health.Checker) http.Handler {
	r := chi.NewRouter()
	if metrics != nil {
		r.Handle(metricsPath, metrics.Handler())
	}
	if checker != nil {
		mountHealth(r, checker)
	}
	return r
}

func mountHealth(r chi.Router, checker *health.Checker) {
	r.Get(PathHealth, checker.HealthHandler())
	r.Get(PathReady, checker.ReadinessHandler())
	r.Get(PathLive, checker.LivenessHandler())
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
