package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/platform/envutil"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type Config struct {
	LogMode     string
	Environment string
	Version     string

	Addr        string
	MetricsAddr string
	CORSOrigins string

	JWTSecretKey string

	Matching MatchingConfig
}

// MatchingConfig tunes the matcher. Values come from defaults, then the YAML
// file named by MATCHING_CONFIG_FILE, then MATCH_* env vars.
type MatchingConfig struct {
	Threshold        float64       `yaml:"threshold"`
	CandidateMode    string        `yaml:"candidate_mode"`
	NearestK         int           `yaml:"nearest_k"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepConcurrency int           `yaml:"sweep_concurrency"`
	TriggerQueueSize int           `yaml:"trigger_queue_size"`
	UserTimeout      time.Duration `yaml:"user_timeout"`
	SideCallTimeout  time.Duration `yaml:"side_call_timeout"`
	LeaseTTL         time.Duration `yaml:"lease_ttl"`
}

func defaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		Threshold:        matching.DefaultThreshold,
		CandidateMode:    matching.CandidateModeFullScan,
		NearestK:         50,
		SweepInterval:    0,
		SweepConcurrency: 4,
		TriggerQueueSize: 256,
		UserTimeout:      2 * time.Minute,
		SideCallTimeout:  3 * time.Second,
		LeaseTTL:         30 * time.Minute,
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:      envutil.String("LOG_MODE", "development"),
		Environment:  envutil.String("APP_ENV", "development"),
		Version:      envutil.String("APP_VERSION", "dev"),
		Addr:         ":" + envutil.String("PORT", "8080"),
		MetricsAddr:  envutil.String("METRICS_ADDR", ""),
		CORSOrigins:  envutil.String("CORS_ALLOWED_ORIGINS", ""),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		Matching:     defaultMatchingConfig(),
	}

	if path := envutil.String("MATCHING_CONFIG_FILE", ""); path != "" {
		if err := loadMatchingFile(path, &cfg.Matching); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("Loaded matching config file", "path", path)
		}
	}
	applyMatchingEnv(&cfg.Matching)

	if err := cfg.Matching.validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecretKey == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET_KEY is required")
	}
	return cfg, nil
}

func loadMatchingFile(path string, into *MatchingConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var file struct {
		Matching MatchingConfig `yaml:"matching"`
	}
	file.Matching = *into
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	*into = file.Matching
	return nil
}

func applyMatchingEnv(m *MatchingConfig) {
	m.Threshold = envutil.Float("MATCH_THRESHOLD", m.Threshold)
	m.CandidateMode = envutil.String("MATCH_CANDIDATE_MODE", m.CandidateMode)
	m.NearestK = envutil.Int("MATCH_NEAREST_K", m.NearestK)
	m.SweepInterval = envutil.Duration("MATCH_SWEEP_INTERVAL", m.SweepInterval)
	m.SweepConcurrency = envutil.Int("MATCH_SWEEP_CONCURRENCY", m.SweepConcurrency)
	m.TriggerQueueSize = envutil.Int("MATCH_TRIGGER_QUEUE_SIZE", m.TriggerQueueSize)
	m.UserTimeout = envutil.Duration("MATCH_USER_TIMEOUT", m.UserTimeout)
	m.SideCallTimeout = envutil.Duration("MATCH_SIDE_CALL_TIMEOUT", m.SideCallTimeout)
	m.LeaseTTL = envutil.Duration("MATCH_LEASE_TTL", m.LeaseTTL)
}

func (m *MatchingConfig) validate() error {
	m.CandidateMode = strings.ToLower(strings.TrimSpace(m.CandidateMode))
	switch {
	case m.Threshold <= 0 || m.Threshold >= 1:
		return fmt.Errorf("config: matching threshold must be in (0,1), got %v", m.Threshold)
	case m.CandidateMode != matching.CandidateModeFullScan && m.CandidateMode != matching.CandidateModeNearest:
		return fmt.Errorf("config: unknown candidate_mode %q", m.CandidateMode)
	case m.CandidateMode == matching.CandidateModeNearest && m.NearestK < 1:
		return fmt.Errorf("config: nearest_k must be positive")
	case m.SweepInterval < 0:
		return fmt.Errorf("config: sweep_interval must not be negative")
	}
	return nil
}

func (m MatchingConfig) driverConfig() matching.DriverConfig {
	return matching.DriverConfig{
		Interval:    m.SweepInterval,
		Concurrency: m.SweepConcurrency,
		QueueSize:   m.TriggerQueueSize,
		UserTimeout: m.UserTimeout,
		LeaseTTL:    m.LeaseTTL,
	}
}
