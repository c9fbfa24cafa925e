package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/solace-backend/internal/platform/envutil"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type Config struct {
	URI         string
	User        string
	Password    string
	Database    string
	DialTimeout time.Duration
	MaxPoolSize int
}

func LoadConfig() Config {
	return Config{
		URI:         envutil.String("NEO4J_URI", ""),
		User:        envutil.String("NEO4J_USER", "neo4j"),
		Password:    envutil.String("NEO4J_PASSWORD", ""),
		Database:    envutil.String("NEO4J_DATABASE", ""),
		DialTimeout: envutil.Duration("NEO4J_TIMEOUT", 10*time.Second),
		MaxPoolSize: envutil.Int("NEO4J_MAX_POOL_SIZE", 50),
	}
}

// Client holds the match graph driver. A nil *Client is a disabled graph.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// NewFromEnv returns nil, nil when NEO4J_URI is unset.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	cfg := LoadConfig()
	if cfg.URI == "" {
		if log != nil {
			log.Warn("NEO4J_URI not set; match graph disabled")
		}
		return nil, nil
	}
	return New(log, cfg)
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.MaxPoolSize < 1 {
		cfg.MaxPoolSize = 50
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.DialTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}
	client := &Client{driver: driver, database: cfg.Database, log: log.With("client", "Neo4jDB")}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return client, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return fmt.Errorf("neo4jdb: client not initialized")
	}
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}
