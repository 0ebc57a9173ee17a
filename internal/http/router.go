package httpapi

import (
	"net/http"

	"citai-analytics-service/internal/config"
	"citai-analytics-service/internal/http/handlers"
	"citai-analytics-service/internal/middleware"
	"citai-analytics-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(logger *zap.Logger, cfg config.Config, h *handlers.Handler, lookup middleware.MemberLookup, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Restaurant-Id",
				"Cache-Control",
				"Pragma",
			},
			ExposedHeaders:   []string{"Content-Disposition", "X-Report-Url", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/merchant/analytics", func(r chi.Router) {
		r.Use(setResponseHeader("X-Analytics-Service-Origin", "native"))
		r.Use(middleware.MerchantAuth(lookup, cfg.JWTSecret))
		r.Get("/", h.MerchantAnalytics)
		r.Get("/export", h.MerchantAnalyticsExport)
		r.Post("/exports", h.CreateExportJob)
		r.Get("/exports/{jobId}", h.GetExportJob)
	})

	if wsServer != nil {
		r.Get("/ws/merchant/exports", wsServer.MerchantExportsWS)
	}

	return r
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}
