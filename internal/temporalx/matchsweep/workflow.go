package matchsweep

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow lists every known user and recomputes them in batches of
// Concurrency. A user whose activity exhausts its retries is recorded in the
// result; only failing to list users fails the workflow.
func Workflow(ctx workflow.Context, in SweepInput) (SweepResult, error) {
	limit := in.Concurrency
	if limit < 1 {
		limit = defaultConcurrency
	}

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 5},
	})
	var users []string
	if err := workflow.ExecuteActivity(listCtx, ActivityListUsers).Get(ctx, &users); err != nil {
		return SweepResult{}, err
	}

	userCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	res := SweepResult{Users: len(users)}
	type call struct {
		userID string
		future workflow.Future
	}
	batch := make([]call, 0, limit)
	drain := func() {
		for _, c := range batch {
			if err := c.future.Get(ctx, nil); err != nil {
				if res.Failed == nil {
					res.Failed = map[string]string{}
				}
				res.Failed[c.userID] = err.Error()
				continue
			}
			res.Succeeded++
		}
		batch = batch[:0]
	}
	for _, id := range users {
		batch = append(batch, call{userID: id, future: workflow.ExecuteActivity(userCtx, ActivityRecomputeOne, id)})
		if len(batch) == limit {
			drain()
		}
	}
	drain()

	workflow.GetLogger(ctx).Info("match sweep finished", "users", res.Users, "succeeded", res.Succeeded, "failed", len(res.Failed))
	return res, nil
}
