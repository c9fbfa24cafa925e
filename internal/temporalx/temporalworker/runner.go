package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/solace-backend/internal/platform/envutil"
	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/temporalx"
	"github.com/yungbote/solace-backend/internal/temporalx/matchsweep"
)

// Runner hosts the match-sweep workflow and activities and keeps the cron
// schedule registered.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	cfg  temporalx.Config
	acts *matchsweep.Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, acts *matchsweep.Activities) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if log == nil || acts == nil || acts.Users == nil || acts.Worker == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{log: log.With("component", "TemporalWorker"), tc: tc, cfg: cfg, acts: acts}, nil
}

// Start polls until the worker is up or the start deadline passes, then
// registers the sweep schedule. The worker stops when ctx ends.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	maxWait := envutil.Duration("TEMPORAL_WORKER_START_MAX_WAIT", 60*time.Second)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			break
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		isNotFound := errors.As(startErr, &nfe)
		if isNotFound && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			if isNotFound {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(time.Duration(attempt) * 250 * time.Millisecond)
	}

	return matchsweep.EnsureSchedule(ctx, r.log, r.tc.ScheduleClient(), matchsweep.ScheduleConfig{
		Cron:        r.cfg.SweepCron,
		TaskQueue:   r.cfg.TaskQueue,
		Concurrency: r.cfg.SweepConcurrency,
	})
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.SweepConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: 2,
	})
	w.RegisterWorkflowWithOptions(matchsweep.Workflow, workflow.RegisterOptions{Name: matchsweep.WorkflowName})
	w.RegisterActivityWithOptions(r.acts.ListUsers, activity.RegisterOptions{Name: matchsweep.ActivityListUsers})
	w.RegisterActivityWithOptions(r.acts.RecomputeUser, activity.RegisterOptions{Name: matchsweep.ActivityRecomputeOne})
	return w
}
