package temporalx

import (
	"github.com/yungbote/solace-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	// SweepCron drives the match-sweep schedule; "off" disables it.
	SweepCron        string
	SweepConcurrency int

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "solace"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "solace-matching"),

		SweepCron:        envutil.String("MATCH_SWEEP_CRON", "*/15 * * * *"),
		SweepConcurrency: envutil.Int("TEMPORAL_SWEEP_CONCURRENCY", 8),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),
	}
}

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
