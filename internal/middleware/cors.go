package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowOrigins     []string `yaml:"origins" json:"origins"`
	AllowMethods     []string `yaml:"methods,omitempty" json:"methods,omitempty"`
	AllowHeaders     []string `yaml:"headers,omitempty" json:"headers,omitempty"`
	ExposeHeaders    []string `yaml:"exposeHeaders,omitempty" json:"exposeHeaders,omitempty"`
	AllowCredentials bool     `yaml:"allowCredentials" json:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
}

// DefaultCORSConfig returns default CORS configuration: the local
// frontend origin with credentials.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID},
		ExposeHeaders:    []string{HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORS returns a middleware that handles CORS. Preflight requests are
// answered here and never reach authentication or authorization.
func CORS(cfg CORSConfig, metrics *Metrics) func(http.Handler) http.Handler {
	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowOrigins,
		AllowedMethods:   cfg.AllowMethods,
		AllowedHeaders:   cfg.AllowHeaders,
		ExposedHeaders:   cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		h := handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics != nil && r.Header.Get("Origin") != "" {
				kind := "actual"
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					kind = "preflight"
				}
				metrics.corsRequestsTotal.WithLabelValues(kind).Inc()
			}
			h.ServeHTTP(w, r)
		})
	}
}
