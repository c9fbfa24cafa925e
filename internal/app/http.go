package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/solace-backend/internal/http"
	httpH "github.com/yungbote/solace-backend/internal/http/handlers"
	httpMW "github.com/yungbote/solace-backend/internal/http/middleware"
	"github.com/yungbote/solace-backend/internal/observability"
	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Realtime *httpH.RealtimeHandler
	Vent     *httpH.VentHandler
	Match    *httpH.MatchHandler
	Admin    *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, theDB *gorm.DB, clients Clients, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(readinessChecks(theDB, clients)),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
		Vent:     httpH.NewVentHandler(services.Vents),
		Match:    httpH.NewMatchHandler(services.Lifecycle, services.Driver),
		Admin:    httpH.NewAdminHandler(services.Driver),
	}
}

// readinessChecks covers the stores requests depend on. The graph is left out;
// recommendations degrade without it.
func readinessChecks(theDB *gorm.DB, clients Clients) map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{
		"postgres": httpH.PingerFunc(func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if rdb := clients.Redis; rdb != nil {
		checks["redis"] = httpH.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	return checks
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	auth, err := httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey)
	if err != nil {
		return Middleware{}, fmt.Errorf("init auth middleware: %w", err)
	}
	return Middleware{Auth: auth}, nil
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     "solace-api",
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		RealtimeHandler: handlers.Realtime,
		VentHandler:     handlers.Vent,
		MatchHandler:    handlers.Match,
		AdminHandler:    handlers.Admin,
	})
}
