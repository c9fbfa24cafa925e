package matchsweep

import (
	"context"
	"errors"
	"strings"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type ScheduleConfig struct {
	Cron        string
	TaskQueue   string
	Concurrency int
}

// EnsureSchedule registers the cron schedule that starts Workflow. An
// existing schedule is left as is; overlapping runs are skipped.
func EnsureSchedule(ctx context.Context, log *logger.Logger, sc temporalsdkclient.ScheduleClient, cfg ScheduleConfig) error {
	cron := strings.TrimSpace(cfg.Cron)
	if sc == nil || cron == "" || strings.EqualFold(cron, "off") {
		return nil
	}
	_, err := sc.Create(ctx, temporalsdkclient.ScheduleOptions{
		ID:      ScheduleID,
		Spec:    temporalsdkclient.ScheduleSpec{CronExpressions: []string{cron}},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        ScheduleID + "-run",
			Workflow:  WorkflowName,
			TaskQueue: cfg.TaskQueue,
			Args:      []any{SweepInput{Concurrency: cfg.Concurrency}},
		},
	})
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		if log != nil {
			log.Debug("match sweep schedule already registered", "schedule_id", ScheduleID)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if log != nil {
		log.Info("match sweep schedule registered", "schedule_id", ScheduleID, "cron", cron)
	}
	return nil
}
