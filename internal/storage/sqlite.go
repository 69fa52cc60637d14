package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"ran-analytics/internal/models"
)

// Timestamps are stored as unix nanoseconds so range filters compare
// integers.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS metrics (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    metric_type TEXT    NOT NULL,
    value       REAL    NOT NULL,
    node_id     INTEGER NOT NULL,
    cell_id     INTEGER NOT NULL,
    timestamp   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp);
CREATE INDEX IF NOT EXISTS idx_metrics_type_node ON metrics(metric_type, node_id);

CREATE TABLE IF NOT EXISTS anomalies (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    result_id       TEXT    NOT NULL DEFAULT '',
    metric_type     TEXT    NOT NULL,
    severity        TEXT    NOT NULL,
    threshold_value REAL    NOT NULL,
    actual_value    REAL    NOT NULL,
    confidence      REAL    NOT NULL,
    detected_at     INTEGER NOT NULL,
    description     TEXT    NOT NULL,
    node_id         INTEGER NOT NULL DEFAULT 0,
    cell_id         INTEGER NOT NULL DEFAULT 0,
    detector        TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_anomalies_timestamp ON anomalies(detected_at);
CREATE INDEX IF NOT EXISTS idx_anomalies_severity ON anomalies(severity);

CREATE TABLE IF NOT EXISTS recommendations (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    result_id            TEXT    NOT NULL DEFAULT '',
    type                 TEXT    NOT NULL,
    metric_type          TEXT    NOT NULL,
    node_id              INTEGER NOT NULL,
    cell_id              INTEGER NOT NULL,
    confidence           REAL    NOT NULL,
    expected_improvement REAL    NOT NULL,
    generated_at         INTEGER NOT NULL,
    description          TEXT    NOT NULL,
    parameters           TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_timestamp ON recommendations(generated_at);
CREATE INDEX IF NOT EXISTS idx_recommendations_type ON recommendations(type);

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type TEXT    NOT NULL,
    node_id    INTEGER NOT NULL,
    timestamp  INTEGER NOT NULL,
    message    TEXT    NOT NULL,
    details    TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db  *sql.DB
	now func() time.Time

	inserts atomic.Uint64
	queries atomic.Uint64
	errors  atomic.Uint64
}

type Option func(*sqliteStore)

// WithClock replaces time.Now as the reference for Cleanup.
func WithClock(now func() time.Time) Option {
	return func(s *sqliteStore) { s.now = now }
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string, opts ...Option) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &sqliteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Counters() Counters {
	return Counters{
		Inserts: s.inserts.Load(),
		Queries: s.queries.Load(),
		Errors:  s.errors.Load(),
	}
}

// track bumps the matching counter for a finished operation.
func (s *sqliteStore) track(counter *atomic.Uint64, err error) error {
	if err != nil {
		s.errors.Add(1)
		return err
	}
	counter.Add(1)
	return nil
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

// timeRange appends an inclusive range filter on column.
func timeRange(query string, args []any, column string, from, to time.Time) (string, []any) {
	if !from.IsZero() {
		query += ` AND ` + column + ` >= ?`
		args = append(args, unixNano(from))
	}
	if !to.IsZero() {
		query += ` AND ` + column + ` <= ?`
		args = append(args, unixNano(to))
	}
	return query, args
}

// ─── Metrics ─────────────────────────────────────────────────────────────────

const insertMetric = `INSERT INTO metrics(metric_type, value, node_id, cell_id, timestamp) VALUES(?,?,?,?,?)`

func (s *sqliteStore) SaveSample(ctx context.Context, m models.Sample) error {
	_, err := s.db.ExecContext(ctx, insertMetric,
		m.Kind.String(), m.Value, m.NodeID, m.CellID, unixNano(m.Timestamp))
	if err != nil {
		err = fmt.Errorf("insert metric: %w", err)
	}
	return s.track(&s.inserts, err)
}

func (s *sqliteStore) SaveSamples(ctx context.Context, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	err := s.saveSamples(ctx, samples)
	if err != nil {
		s.errors.Add(1)
		return err
	}
	s.inserts.Add(uint64(len(samples)))
	return nil
}

func (s *sqliteStore) saveSamples(ctx context.Context, samples []models.Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metric batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertMetric)
	if err != nil {
		return fmt.Errorf("prepare metric batch: %w", err)
	}
	defer stmt.Close()

	for _, m := range samples {
		if _, err := stmt.ExecContext(ctx, m.Kind.String(), m.Value, m.NodeID, m.CellID, unixNano(m.Timestamp)); err != nil {
			return fmt.Errorf("insert metric: %w", err)
		}
	}
	return tx.Commit()
}

func metricFilter(q MetricQuery) (string, []any) {
	where := ` WHERE metric_type = ?`
	args := []any{q.Kind.String()}
	if q.NodeID != 0 {
		where += ` AND node_id = ?`
		args = append(args, q.NodeID)
	}
	return timeRange(where, args, "timestamp", q.From, q.To)
}

func (s *sqliteStore) QueryMetrics(ctx context.Context, q MetricQuery) ([]models.Sample, error) {
	where, args := metricFilter(q)
	result, err := s.queryMetrics(ctx, where+` ORDER BY timestamp ASC, id ASC`, args)
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) RecentMetrics(ctx context.Context, kind models.MetricKind, limit int) ([]models.Sample, error) {
	result, err := s.queryMetrics(ctx, ` WHERE metric_type = ? ORDER BY id DESC LIMIT ?`, []any{kind.String(), limit})
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) queryMetrics(ctx context.Context, tail string, args []any) ([]models.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metric_type, value, node_id, cell_id, timestamp FROM metrics`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var result []models.Sample
	for rows.Next() {
		var (
			m    models.Sample
			kind string
			ts   int64
		)
		if err := rows.Scan(&kind, &m.Value, &m.NodeID, &m.CellID, &ts); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if m.Kind, err = models.ParseMetricKind(kind); err != nil {
			return nil, err
		}
		m.Timestamp = fromUnixNano(ts)
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *sqliteStore) MetricStats(ctx context.Context, q MetricQuery) (MetricSummary, error) {
	where, args := metricFilter(q)
	var (
		summary     MetricSummary
		avg, lo, hi sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(value), MIN(value), MAX(value) FROM metrics`+where, args...).
		Scan(&summary.Count, &avg, &lo, &hi)
	if err != nil {
		return MetricSummary{}, s.track(&s.queries, fmt.Errorf("metric stats: %w", err))
	}
	summary.Avg, summary.Min, summary.Max = avg.Float64, lo.Float64, hi.Float64
	return summary, s.track(&s.queries, nil)
}

// ─── Anomalies ───────────────────────────────────────────────────────────────

func (s *sqliteStore) SaveAnomaly(ctx context.Context, a models.AnomalyResult) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO anomalies(result_id, metric_type, severity, threshold_value, actual_value, confidence, detected_at, description, node_id, cell_id, detector)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Kind.String(), a.Severity.String(), a.Threshold, a.Actual, a.Confidence,
		unixNano(a.DetectedAt), a.Description, a.NodeID, a.CellID, a.Detector,
	)
	if err != nil {
		err = fmt.Errorf("insert anomaly: %w", err)
	}
	return s.track(&s.inserts, err)
}

func (s *sqliteStore) QueryAnomalies(ctx context.Context, q AnomalyQuery) ([]models.AnomalyResult, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if q.Severity != models.SeverityNone {
		where += ` AND severity = ?`
		args = append(args, q.Severity.String())
	}
	where, args = timeRange(where, args, "detected_at", q.From, q.To)

	result, err := s.queryAnomalies(ctx, where+` ORDER BY detected_at ASC, id ASC`, args)
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) RecentAnomalies(ctx context.Context, limit int) ([]models.AnomalyResult, error) {
	result, err := s.queryAnomalies(ctx, ` ORDER BY id DESC LIMIT ?`, []any{limit})
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) queryAnomalies(ctx context.Context, tail string, args []any) ([]models.AnomalyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT result_id, metric_type, severity, threshold_value, actual_value, confidence, detected_at, description, node_id, cell_id, detector
        FROM anomalies`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var result []models.AnomalyResult
	for rows.Next() {
		var (
			a              models.AnomalyResult
			kind, severity string
			ts             int64
		)
		if err := rows.Scan(&a.ID, &kind, &severity, &a.Threshold, &a.Actual, &a.Confidence,
			&ts, &a.Description, &a.NodeID, &a.CellID, &a.Detector); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		if a.Kind, err = models.ParseMetricKind(kind); err != nil {
			return nil, err
		}
		if a.Severity, err = models.ParseSeverity(severity); err != nil {
			return nil, err
		}
		a.DetectedAt = fromUnixNano(ts)
		result = append(result, a)
	}
	return result, rows.Err()
}

// ─── Recommendations ─────────────────────────────────────────────────────────

func (s *sqliteStore) SaveRecommendation(ctx context.Context, r models.RecommendationResult) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO recommendations(result_id, type, metric_type, node_id, cell_id, confidence, expected_improvement, generated_at, description, parameters)
        VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Kind.String(), r.MetricKind.String(), r.NodeID, r.CellID, r.Confidence,
		r.ExpectedImprovement, unixNano(r.GeneratedAt), r.Description, r.Parameters,
	)
	if err != nil {
		err = fmt.Errorf("insert recommendation: %w", err)
	}
	return s.track(&s.inserts, err)
}

func (s *sqliteStore) QueryRecommendations(ctx context.Context, q RecommendationQuery) ([]models.RecommendationResult, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if q.Kind != models.RecommendationNone {
		where += ` AND type = ?`
		args = append(args, q.Kind.String())
	}
	where, args = timeRange(where, args, "generated_at", q.From, q.To)

	result, err := s.queryRecommendations(ctx, where+` ORDER BY generated_at ASC, id ASC`, args)
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) RecentRecommendations(ctx context.Context, limit int) ([]models.RecommendationResult, error) {
	result, err := s.queryRecommendations(ctx, ` ORDER BY id DESC LIMIT ?`, []any{limit})
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) queryRecommendations(ctx context.Context, tail string, args []any) ([]models.RecommendationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT result_id, type, metric_type, node_id, cell_id, confidence, expected_improvement, generated_at, description, parameters
        FROM recommendations`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var result []models.RecommendationResult
	for rows.Next() {
		var (
			r        models.RecommendationResult
			kind, mt string
			ts       int64
		)
		if err := rows.Scan(&r.ID, &kind, &mt, &r.NodeID, &r.CellID, &r.Confidence,
			&r.ExpectedImprovement, &ts, &r.Description, &r.Parameters); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		if r.Kind, err = models.ParseRecommendationKind(kind); err != nil {
			return nil, err
		}
		if r.MetricKind, err = models.ParseMetricKind(mt); err != nil {
			return nil, err
		}
		r.GeneratedAt = fromUnixNano(ts)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ─── Events ──────────────────────────────────────────────────────────────────

func (s *sqliteStore) LogEvent(ctx context.Context, e models.Event) (int64, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(event_type, node_id, timestamp, message, details) VALUES(?,?,?,?,?)`,
		string(e.Type), e.NodeID, unixNano(e.Timestamp), e.Message, e.Details)
	if err != nil {
		return 0, s.track(&s.inserts, fmt.Errorf("insert event: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.track(&s.inserts, fmt.Errorf("event id: %w", err))
	}
	return id, s.track(&s.inserts, nil)
}

func (s *sqliteStore) QueryEvents(ctx context.Context, q EventQuery) ([]models.Event, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if q.Type != "" {
		where += ` AND event_type = ?`
		args = append(args, string(q.Type))
	}
	where, args = timeRange(where, args, "timestamp", q.From, q.To)

	result, err := s.queryEvents(ctx, where+` ORDER BY timestamp ASC, id ASC`, args)
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	result, err := s.queryEvents(ctx, ` ORDER BY id DESC LIMIT ?`, []any{limit})
	return result, s.track(&s.queries, err)
}

func (s *sqliteStore) queryEvents(ctx context.Context, tail string, args []any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, node_id, timestamp, message, details FROM events`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []models.Event
	for rows.Next() {
		var (
			e   models.Event
			typ string
			ts  int64
		)
		if err := rows.Scan(&e.ID, &typ, &e.NodeID, &ts, &e.Message, &e.Details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = models.EventType(typ)
		e.Timestamp = fromUnixNano(ts)
		result = append(result, e)
	}
	return result, rows.Err()
}

// ─── Retention ───────────────────────────────────────────────────────────────

func (s *sqliteStore) Cleanup(ctx context.Context, metricRetention, eventRetention time.Duration) (CleanupResult, error) {
	now := s.now()
	metricCutoff := unixNano(now.Add(-metricRetention))
	eventCutoff := unixNano(now.Add(-eventRetention))

	var result CleanupResult
	steps := []struct {
		sql    string
		cutoff int64
		count  *int64
	}{
		{`DELETE FROM metrics WHERE timestamp < ?`, metricCutoff, &result.Metrics},
		{`DELETE FROM anomalies WHERE detected_at < ?`, metricCutoff, &result.Anomalies},
		{`DELETE FROM recommendations WHERE generated_at < ?`, metricCutoff, &result.Recommendations},
		{`DELETE FROM events WHERE timestamp < ?`, eventCutoff, &result.Events},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.errors.Add(1)
		return CleanupResult{}, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	for _, step := range steps {
		res, err := tx.ExecContext(ctx, step.sql, step.cutoff)
		if err != nil {
			s.errors.Add(1)
			return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
		}
		*step.count, _ = res.RowsAffected()
	}
	if err := tx.Commit(); err != nil {
		s.errors.Add(1)
		return CleanupResult{}, fmt.Errorf("commit cleanup: %w", err)
	}
	return result, nil
}
