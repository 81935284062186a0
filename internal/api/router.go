package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metrics "github.com/slok/go-http-metrics/metrics/prometheus"
	httpmetrics "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	"go.uber.org/zap"

	"github.com/kiraleos/reply-engine/internal/core"
)

// NewRouter wires every route. reg, when non-nil, receives the HTTP metrics and
// is exposed on /metrics.
func NewRouter(apiHandler *APIHandler, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(apiHandler.log))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	if reg != nil {
		mdlw := httpmetrics.New(httpmetrics.Config{
			Recorder: metrics.NewRecorder(metrics.Config{Registry: reg}),
		})
		r.Use(std.HandlerProvider("", mdlw))
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Generation routes
		r.Post("/generate", apiHandler.replyHandler(core.RouteLongReply))
		r.Post("/generate-quote", apiHandler.replyHandler(core.RouteQuote))
		r.Post("/generate-discord", apiHandler.replyHandler(core.RouteDiscord))
		r.Post("/generate-quick", apiHandler.QuickReplyHandler)
		r.Post("/generate-topic", apiHandler.TopicHandler)
		r.Post("/generate-parafrase", apiHandler.textHandler(core.RouteParaphrase))
		r.Post("/generate-translate", apiHandler.textHandler(core.RouteTranslate))

		r.Post("/auth/register", apiHandler.RegisterHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)
		r.Post("/payment/create", apiHandler.CreatePaymentHandler)
		r.Get("/payment/{paymentID}", apiHandler.GetPaymentHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)
			r.Get("/auth/me", apiHandler.MeHandler)
		})
	})

	return r
}

func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Infow("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
