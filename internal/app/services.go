package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/solace-backend/internal/data/db"
	"github.com/yungbote/solace-backend/internal/data/graph"
	"github.com/yungbote/solace-backend/internal/data/vectorindex"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/observability"
	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/realtime"
	"github.com/yungbote/solace-backend/internal/realtime/bus"
	"github.com/yungbote/solace-backend/internal/services"
	"github.com/yungbote/solace-backend/internal/temporalx/matchsweep"
	"github.com/yungbote/solace-backend/internal/temporalx/temporalworker"
)

type Services struct {
	// Notifications
	SSEBus  bus.Bus
	Emitter services.SSEEmitter

	// Matching core
	Index      *matching.EmbeddingIndex
	Graph      matching.GraphStore
	Recomputer matching.Recomputer
	Lifecycle  *matching.Lifecycle
	Driver     *matching.Driver

	Vents services.VentService

	// Nil unless TEMPORAL_ADDRESS is set.
	TemporalWorker *temporalworker.Runner
}

func wireServices(ctx context.Context, theDB *gorm.DB, log *logger.Logger, cfg Config, repos Repos, sseHub *realtime.SSEHub, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	mc := cfg.Matching

	// With redis every replica hears every event; without it only local clients do.
	var sseBus bus.Bus
	var emitter services.SSEEmitter
	if clients.Redis != nil {
		b, err := bus.NewRedisBus(log, clients.Redis)
		if err != nil {
			return Services{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
		emitter = &services.RedisEmitter{Bus: b, Log: log}
	} else {
		emitter = &services.HubEmitter{Hub: sseHub}
	}

	var graphStore matching.GraphStore
	if clients.Neo4j != nil {
		clients.Neo4j.EnsureSchema(ctx, graph.MatchSchema...)
		graphStore = graph.NewMatchGraph(clients.Neo4j, log)
	}
	guardedGraph := matching.GuardGraph(graphStore, mc.SideCallTimeout, log)

	var embedder matching.Embedder
	var vecIndex matching.VectorIndex
	if clients.Embedder != nil {
		pgv := vectorindex.NewPGVectorIndex(theDB, log, clients.Embedder.Dimensions(), clients.Embedder.Model())
		if err := pgv.EnsureSchema(ctx); err != nil {
			log.Warn("pgvector unavailable; embedding index disabled", "error", err)
		} else {
			embedder = instrumentEmbedder(clients.Embedder, metrics)
			vecIndex = instrumentVectorIndex(pgv, metrics)
		}
	}
	index := matching.NewEmbeddingIndex(log, embedder, vecIndex, mc.SideCallTimeout)

	fullScan := matching.FullScan{Content: repos.Vent}
	var candidates matching.CandidateSource = fullScan
	if mc.CandidateMode == matching.CandidateModeNearest {
		if !index.Enabled() {
			log.Warn("nearest candidate mode without an embedding index; using full scan")
		}
		candidates = matching.Nearest{
			Log:      log,
			Index:    index,
			Content:  repos.Vent,
			K:        mc.NearestK,
			Fallback: fullScan,
		}
	}

	aggregator, err := matching.NewAggregator(matching.AggregatorDeps{
		Log:        log,
		Content:    repos.Vent,
		Candidates: candidates,
		Matches:    repos.Match,
		Graph:      guardedGraph,
		Threshold:  mc.Threshold,
	})
	if err != nil {
		return Services{}, err
	}
	recomputer := instrumentRecomputer(aggregator, metrics)

	notifier := countNotifications(services.NewMatchNotifier(emitter), metrics)
	lifecycle, err := matching.NewLifecycle(matching.LifecycleDeps{
		Log:     log,
		Matches: repos.Match,
		Graph:   guardedGraph,
		Notify:  notifier,
	})
	if err != nil {
		return Services{}, err
	}

	var lease matching.Lease
	if clients.Redis != nil {
		lease = matching.NewRedisLease(clients.Redis)
	}
	var observer matching.SweepObserver
	if metrics != nil {
		observer = sweepMetrics{metrics: metrics}
	}
	users := matching.KnownUsers(repos.Vent, repos.Match)
	driver, err := matching.NewDriver(matching.DriverDeps{
		Log:        log,
		Recomputer: recomputer,
		Users:      users,
		Lease:      lease,
		Observer:   observer,
		Config:     mc.driverConfig(),
	})
	if err != nil {
		return Services{}, err
	}

	vents, err := services.NewVentService(services.VentServiceDeps{
		Log:     log,
		Tx:      db.NewGormTxRunner(theDB),
		Vents:   repos.Vent,
		Purger:  repos.Match,
		Index:   index,
		Trigger: driver,
	})
	if err != nil {
		return Services{}, err
	}

	var temporalRunner *temporalworker.Runner
	if clients.Temporal != nil {
		w, err := temporalworker.NewRunner(log, clients.Temporal, clients.TemporalCfg, &matchsweep.Activities{
			Log:    log,
			Users:  users,
			Worker: driver,
		})
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		temporalRunner = w
	}

	return Services{
		SSEBus:         sseBus,
		Emitter:        emitter,
		Index:          index,
		Graph:          guardedGraph,
		Recomputer:     recomputer,
		Lifecycle:      lifecycle,
		Driver:         driver,
		Vents:          vents,
		TemporalWorker: temporalRunner,
	}, nil
}
