package neo4jdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record is one result row keyed by column name.
type Record map[string]any

// Runner executes a single cypher statement inside a managed transaction.
type Runner interface {
	Write(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	Read(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
}

func (c *Client) Write(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	return c.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (c *Client) Read(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	return c.run(ctx, neo4j.AccessModeRead, cypher, params)
}

// EnsureSchema applies idempotent schema statements. Failures are logged and skipped.
func (c *Client) EnsureSchema(ctx context.Context, statements ...string) {
	if c == nil || c.driver == nil {
		return
	}
	for _, stmt := range statements {
		if _, err := c.Write(ctx, stmt, nil); err != nil && c.log != nil {
			c.log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	}
}

func (c *Client) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]Record, error) {
	if c == nil || c.driver == nil {
		return nil, fmt.Errorf("neo4jdb: client not initialized")
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		recs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Record, 0, len(recs))
		for _, rec := range recs {
			rows = append(rows, Record(rec.AsMap()))
		}
		return rows, nil
	}

	var (
		out any
		err error
	)
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]Record)
	return rows, nil
}
