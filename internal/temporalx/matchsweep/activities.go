package matchsweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// UserRecomputer runs one user's recompute with its own timeout and panic guard.
type UserRecomputer interface {
	RecomputeUser(ctx context.Context, userID uuid.UUID) error
}

type Activities struct {
	Log    *logger.Logger
	Users  matching.UserLister
	Worker UserRecomputer
}

func (a *Activities) ListUsers(ctx context.Context) ([]string, error) {
	ids, err := a.Users.ListKnownUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

func (a *Activities) RecomputeUser(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("invalid user id", "invalid_user_id", err)
	}
	if err := a.Worker.RecomputeUser(ctx, id); err != nil {
		if a.Log != nil {
			a.Log.Warn("sweep recompute attempt failed", "user_id", id, "error", err)
		}
		return err
	}
	return nil
}
