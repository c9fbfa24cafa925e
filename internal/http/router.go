package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/solace-backend/internal/http/handlers"
	httpMW "github.com/yungbote/solace-backend/internal/http/middleware"
	"github.com/yungbote/solace-backend/internal/observability"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	RealtimeHandler *httpH.RealtimeHandler
	VentHandler     *httpH.VentHandler
	MatchHandler    *httpH.MatchHandler
	AdminHandler    *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "solace-api"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware == nil {
		// without identity nothing below is reachable
		return r
	}
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Vents
		if cfg.VentHandler != nil {
			protected.POST("/vents", cfg.VentHandler.CreateVent)
			protected.GET("/vents", cfg.VentHandler.ListMyVents)
			protected.DELETE("/vents/:id", cfg.VentHandler.DeleteVent)
		}

		// Matches
		if cfg.MatchHandler != nil {
			protected.GET("/matches/pending", cfg.MatchHandler.ListPending)
			protected.GET("/matches/suggestions", cfg.MatchHandler.ListSuggestions)
			protected.GET("/matches/history", cfg.MatchHandler.ListHistory)
			protected.GET("/matches/recommendations", cfg.MatchHandler.Recommendations)
			protected.POST("/matches/recompute", cfg.MatchHandler.Recompute)
			protected.GET("/matches/:id", cfg.MatchHandler.GetMatch)
			protected.POST("/matches/:id/accept", cfg.MatchHandler.Accept)
			protected.POST("/matches/:id/reject", cfg.MatchHandler.Reject)
			protected.POST("/matches/:id/unmatch", cfg.MatchHandler.Unmatch)
		}
	}

	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	{
		if cfg.AdminHandler != nil {
			admin.POST("/matches/sweep", cfg.AdminHandler.SweepMatches)
		}
	}

	return r
}
