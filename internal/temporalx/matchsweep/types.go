package matchsweep

const (
	WorkflowName         = "match_sweep"
	ScheduleID           = "match-sweep"
	ActivityListUsers    = "match_sweep.list_users"
	ActivityRecomputeOne = "match_sweep.recompute_user"

	defaultConcurrency = 8
)

type SweepInput struct {
	Concurrency int `json:"concurrency,omitempty"`
}

// SweepResult mirrors the in-process sweep report. Failed maps user id to
// the last error after activity retries were exhausted.
type SweepResult struct {
	Users     int               `json:"users"`
	Succeeded int               `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}
