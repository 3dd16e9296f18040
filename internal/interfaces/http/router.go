package http

import (
	"net/http"

	"github.com/dreschagin/sre-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/sre-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/sre-monitor/internal/scheduler"
	"github.com/dreschagin/sre-monitor/pkg/config"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	apiHandler       *handler.APIHandler
	websocketHandler *handler.WebSocketHandler
	schedulerHandler *scheduler.Handler
	metricsHandler   http.Handler
	metricsPath      string
	security         config.SecurityConfig
	apiLimiter       *middleware.IPRateLimiter
	triggerLimiter   *middleware.IPRateLimiter
	logger           *logger.Logger
}

// NewRouter создает новый router.
// metricsHandler может быть nil, если Prometheus отключен.
func NewRouter(
	apiHandler *handler.APIHandler,
	websocketHandler *handler.WebSocketHandler,
	schedulerHandler *scheduler.Handler,
	metricsHandler http.Handler,
	metrics config.MetricsConfig,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		apiHandler:       apiHandler,
		websocketHandler: websocketHandler,
		schedulerHandler: schedulerHandler,
		metricsHandler:   metricsHandler,
		metricsPath:      metrics.Path,
		security:         security,
		apiLimiter:       middleware.NewIPRateLimiter(security.RateLimitPerMinute, 0),
		triggerLimiter:   middleware.NewIPRateLimiter(security.TriggerPerMinute, 1),
		logger:           logger,
	}
}

// Limiters возвращает лимитеры для фоновой очистки
func (rt *Router) Limiters() []*middleware.IPRateLimiter {
	return []*middleware.IPRateLimiter{rt.apiLimiter, rt.triggerLimiter}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)
	apiLimit := middleware.RateLimit(rt.apiLimiter)

	api := func(h http.HandlerFunc) http.Handler {
		return apiLimit(authMiddleware(middleware.Compression(h)))
	}

	// healthz, readyz и status планировщика; ручной запуск требует авторизации
	rt.schedulerHandler.Register(rt.mux, func(next http.Handler) http.Handler {
		return middleware.RateLimit(rt.triggerLimiter)(authMiddleware(next))
	})

	if rt.metricsHandler != nil {
		path := rt.metricsPath
		if path == "" {
			path = "/metrics"
		}
		rt.mux.Handle(path, rt.metricsHandler)
	}

	// WebSocket
	rt.mux.Handle("/ws", apiLimit(authMiddleware(http.HandlerFunc(rt.websocketHandler.HandleConnection))))

	// API endpoints
	rt.mux.Handle("/api/v1/analysis/current", api(rt.apiHandler.GetCurrentAnalysis))
	rt.mux.Handle("/api/v1/cycles", api(rt.apiHandler.GetCycles))
	rt.mux.Handle("/api/v1/reports", api(rt.apiHandler.ListReports))

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}
