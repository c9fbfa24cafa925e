package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/solace-backend/internal/data/db"
	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/platform/neo4jdb"
	"github.com/yungbote/solace-backend/internal/platform/openai"
	"github.com/yungbote/solace-backend/internal/platform/redisdb"
	"github.com/yungbote/solace-backend/internal/temporalx"
)

// Clients holds every external connection. Only Postgres is required; the
// rest are nil when their env is unset.
type Clients struct {
	Postgres    *db.PostgresService
	Neo4j       *neo4jdb.Client
	Redis       *goredis.Client
	Embedder    openai.Embedder
	Temporal    temporalsdkclient.Client
	TemporalCfg temporalx.Config
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Postgres
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	c.Postgres = pg
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := db.EnsureMatchIndexes(pg.DB()); err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("postgres match indexes: %w", err)
	}

	// Neo4j
	graphClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		// The graph only feeds recommendations; start without it.
		log.Warn("Neo4j unavailable; recommendations fall back to direct matches", "error", err)
	} else if graphClient != nil {
		c.Neo4j = graphClient
	}

	// Redis
	rdb, err := redisdb.NewFromEnv(log)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		c.Redis = rdb
	}

	// Openai
	emb, err := openai.NewEmbedderFromEnv(log)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init openai embedder: %w", err)
	}
	if emb != nil {
		c.Embedder = emb
	}

	// Temporal
	c.TemporalCfg = temporalx.LoadConfig()
	tc, err := temporalx.NewClient(log, c.TemporalCfg)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	if tc != nil {
		c.Temporal = tc
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Neo4j.Close(ctx)
		cancel()
	}
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
}
