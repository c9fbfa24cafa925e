package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/solace-backend/internal/platform/envutil"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// Metrics is the process-wide registry served on /metrics. Every method is
// safe on a nil receiver so callers never check whether metrics are enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	recomputes       *CounterVec
	recomputeLatency *HistogramVec
	evidenceAdded    *CounterVec
	pairsTouched     *CounterVec

	sweeps        *CounterVec
	sweepUsers    *GaugeVec
	sweepFailures *GaugeVec
	sweepSeconds  *GaugeVec

	matchEvents *CounterVec
	indexOps    *HistogramVec

	postgresUp *GaugeVec
	redisUp    *GaugeVec
	redisPing  *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the shared registry once. It returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	latency := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	return &Metrics{
		apiRequests: NewCounterVec("solace_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("solace_api_request_duration_seconds", "API request latency by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("solace_api_inflight_requests", "In-flight API requests."),

		recomputes:       NewCounterVec("solace_match_recomputes_total", "Per-user match recomputes by status.", []string{"status"}),
		recomputeLatency: NewHistogramVec("solace_match_recompute_duration_seconds", "Per-user match recompute latency.", []string{"status"}, []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120}),
		evidenceAdded:    NewCounterVec("solace_match_evidence_added_total", "Evidence rows inserted by recomputes.", nil),
		pairsTouched:     NewCounterVec("solace_match_pairs_touched_total", "Match records created or updated by recomputes.", nil),

		sweeps:        NewCounterVec("solace_match_sweeps_total", "Match sweeps by outcome.", []string{"outcome"}),
		sweepUsers:    NewGauge("solace_match_sweep_users", "Users visited by the last completed sweep."),
		sweepFailures: NewGauge("solace_match_sweep_failures", "Users that failed in the last completed sweep."),
		sweepSeconds:  NewGauge("solace_match_sweep_duration_seconds", "Wall time of the last completed sweep."),

		matchEvents: NewCounterVec("solace_match_events_total", "Match lifecycle notifications by event.", []string{"event"}),
		indexOps:    NewHistogramVec("solace_vector_index_duration_seconds", "Vector index and embedder calls by operation/status.", []string{"operation", "status"}, latency),

		postgresUp: NewGauge("solace_postgres_up", "Postgres reachability (1 up, 0 down)."),
		redisUp:    NewGauge("solace_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:  NewGauge("solace_redis_ping_seconds", "Last Redis ping latency."),
	}
}

func (m *Metrics) writers() []interface{ WritePrometheus(io.Writer) error } {
	return []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.recomputes, m.recomputeLatency, m.evidenceAdded, m.pairsTouched,
		m.sweeps, m.sweepUsers, m.sweepFailures, m.sweepSeconds,
		m.matchEvents, m.indexOps,
		m.postgresUp, m.redisUp, m.redisPing,
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, s := range m.writers() {
		if err := s.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// StartServer serves /metrics on its own listener until ctx ends.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Add(1)
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Add(-1)
	}
}

func (m *Metrics) ObserveRecompute(status string, dur time.Duration, pairs, evidence int) {
	if m == nil {
		return
	}
	m.recomputes.Inc(status)
	m.recomputeLatency.Observe(dur.Seconds(), status)
	m.pairsTouched.Add(float64(pairs))
	m.evidenceAdded.Add(float64(evidence))
}

// ObserveSweep records one sweep outcome: ok, partial, skipped or error.
func (m *Metrics) ObserveSweep(outcome string, users, failures int, dur time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.Inc(outcome)
	if outcome == "skipped" || outcome == "error" {
		return
	}
	m.sweepUsers.Set(float64(users))
	m.sweepFailures.Set(float64(failures))
	m.sweepSeconds.Set(dur.Seconds())
}

func (m *Metrics) IncMatchEvent(event string) {
	if m != nil {
		m.matchEvents.Inc(event)
	}
}

func (m *Metrics) ObserveIndexOperation(operation, status string, dur time.Duration) {
	if m != nil {
		m.indexOps.Observe(dur.Seconds(), operation, status)
	}
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL", 15*time.Second)
	if d < time.Second {
		return time.Second
	}
	return d
}

// StartPostgresCollector pings the pool on an interval and reports reachability.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go m.poll(ctx, func(ctx context.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			m.postgresUp.Set(0)
			if log != nil {
				log.Warn("metrics: postgres ping failed", "error", err)
			}
			return
		}
		m.postgresUp.Set(1)
	})
}

// StartRedisCollector reuses the application's client rather than dialing its own.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go m.poll(ctx, func(ctx context.Context) {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) poll(ctx context.Context, collect func(context.Context)) {
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			collect(pctx)
			cancel()
		}
	}
}
