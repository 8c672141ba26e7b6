package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// QueryStats holds query execution statistics for a Conn.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Stats returns a point-in-time snapshot.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is an immutable read of QueryStats at one instant.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration is TotalDuration divided across every query and exec.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called whenever a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsConn decorates a Conn with query statistics and slow-query
// detection.
type StatsConn struct {
	Conn
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures a StatsConn.
type StatsOption func(*StatsConn)

// WithSlowThreshold sets the slow-query threshold (default 100ms).
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsConn) { s.slowThreshold = d }
}

// WithSlowQueryHook registers a callback invoked for every slow query.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsConn) { s.slowHook = hook }
}

// WithSlowQueryLog logs slow queries via log/slog, matching the rest of
// this module's logging convention (structured fields, no custom facade).
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		slog.Warn("slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsConn wraps conn with statistics collection.
func NewStatsConn(conn Conn, opts ...StatsOption) *StatsConn {
	s := &StatsConn{Conn: conn, stats: &QueryStats{}, slowThreshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying counters.
func (s *StatsConn) QueryStats() *QueryStats { return s.stats }

// SlowThreshold returns the current slow-query threshold.
func (s *StatsConn) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow-query threshold.
func (s *StatsConn) SetSlowThreshold(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = d
}

// ExecContext runs the statement and records it as an exec.
func (s *StatsConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.Conn.ExecContext(ctx, query, args...)
	s.record(ctx, query, args, start, err, false)
	return res, err
}

// QueryContext runs the statement and records it as a query.
func (s *StatsConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.Conn.QueryContext(ctx, query, args...)
	s.record(ctx, query, args, start, err, true)
	return rows, err
}

func (s *StatsConn) record(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		s.stats.TotalQueries.Add(1)
	} else {
		s.stats.TotalExecs.Add(1)
	}
	s.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold, hook := s.slowThreshold, s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, args, duration)
		}
	}
}

// DebugConn decorates a Conn with debug logging of every statement run
// through it.
type DebugConn struct {
	Conn
	log func(ctx context.Context, msg string, args ...any)
}

// NewDebugConn wraps conn with slog-based statement logging.
func NewDebugConn(conn Conn) *DebugConn {
	return &DebugConn{Conn: conn, log: func(_ context.Context, msg string, args ...any) {
		slog.Debug(msg, args...)
	}}
}

func (d *DebugConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.log(ctx, "exec", "sql", query, "args", args)
	return d.Conn.ExecContext(ctx, query, args...)
}

func (d *DebugConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.log(ctx, "query", "sql", query, "args", args)
	return d.Conn.QueryContext(ctx, query, args...)
}
