package repo

import (
    "context"
    "errors"
    "sort"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

// Analysis runs
func (r *Repository) StartRun(ctx context.Context, source string) (int64, error) {
    const q = `INSERT INTO analysis_runs(started_at, source, success) VALUES(now(), $1, false) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q, source).Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) FinishRun(ctx context.Context, id int64, total, accepted, skipped int, success bool, errStr string) error {
    const q = `UPDATE analysis_runs SET finished_at=now(), records_total=$2, records_accepted=$3,
        records_skipped=$4, success=$5, error=$6 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, id, total, accepted, skipped, success, errStr)
    return err
}

type LastRun struct {
    ID              int64      `json:"id"`
    StartedAt       time.Time  `json:"started_at"`
    FinishedAt      *time.Time `json:"finished_at"`
    Source          string     `json:"source"`
    RecordsTotal    int        `json:"records_total"`
    RecordsAccepted int        `json:"records_accepted"`
    RecordsSkipped  int        `json:"records_skipped"`
    Success         bool       `json:"success"`
    Error           string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
    const q = `SELECT id, started_at, finished_at, coalesce(source,''),
        coalesce(records_total,0), coalesce(records_accepted,0), coalesce(records_skipped,0),
        coalesce(success,false), coalesce(error,'')
        FROM analysis_runs ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    lr := &LastRun{}
    if err := row.Scan(&lr.ID, &lr.StartedAt, &lr.FinishedAt, &lr.Source, &lr.RecordsTotal,
        &lr.RecordsAccepted, &lr.RecordsSkipped, &lr.Success, &lr.Error); err != nil {
        return nil, err
    }
    return lr, nil
}

func (r *Repository) GetLastSuccessfulRunID(ctx context.Context) (int64, error) {
    var id int64
    err := r.db.Pool.QueryRow(ctx, `SELECT id FROM analysis_runs WHERE success ORDER BY id DESC LIMIT 1`).Scan(&id)
    return id, err
}

// UpsertIssues writes the enriched batch, keyed by the Jira issue key.
func (r *Repository) UpsertIssues(ctx context.Context, runID int64, issues []domain.EnrichedIssue) error {
    if len(issues) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `
        INSERT INTO issues(key, run_id, summary, status, priority, assignee, reporter,
            resolution, root_cause, created_at_jira, updated_at_jira, resolved_at_jira,
            month_bucket, quarter, resolution_seconds, integration_app,
            customer, customer_confidence, holiday_period)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        ON CONFLICT(key) DO UPDATE SET
            run_id=EXCLUDED.run_id,
            summary=EXCLUDED.summary,
            status=EXCLUDED.status,
            priority=EXCLUDED.priority,
            assignee=EXCLUDED.assignee,
            reporter=EXCLUDED.reporter,
            resolution=EXCLUDED.resolution,
            root_cause=EXCLUDED.root_cause,
            created_at_jira=EXCLUDED.created_at_jira,
            updated_at_jira=EXCLUDED.updated_at_jira,
            resolved_at_jira=EXCLUDED.resolved_at_jira,
            month_bucket=EXCLUDED.month_bucket,
            quarter=EXCLUDED.quarter,
            resolution_seconds=EXCLUDED.resolution_seconds,
            integration_app=EXCLUDED.integration_app,
            customer=EXCLUDED.customer,
            customer_confidence=EXCLUDED.customer_confidence,
            holiday_period=EXCLUDED.holiday_period`
    for _, iss := range issues {
        var seconds *int64
        if iss.ResolutionTime != nil {
            s := int64(iss.ResolutionTime.Seconds())
            seconds = &s
        }
        batch.Queue(q, iss.ID, runID, iss.Summary, iss.Status, iss.Priority, iss.Assignee, iss.Reporter,
            iss.Resolution, iss.RootCause, iss.CreatedAt, iss.UpdatedAt, iss.ResolvedAt,
            iss.MonthYear.String(), iss.Quarter, seconds, iss.IntegrationApp,
            iss.Customer, string(iss.CustomerConfidence), iss.HolidayPeriod)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range issues { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// SaveTables persists every pivot cell of a run.
func (r *Repository) SaveTables(ctx context.Context, runID int64, tables map[string]*domain.AggregationTable) error {
    batch := &pgx.Batch{}
    n := 0
    const q = `INSERT INTO aggregation_cells(run_id, dimension, value, month_bucket, count)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (run_id, dimension, value, month_bucket) DO UPDATE SET count=EXCLUDED.count`
    for _, t := range tables {
        for _, row := range t.Rows {
            for i, b := range t.Buckets {
                if row.Counts[i] == 0 { continue }
                batch.Queue(q, runID, t.Dimension, row.Value, b.String(), row.Counts[i])
                n++
            }
        }
    }
    if n == 0 { return nil }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for i := 0; i < n; i++ { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// SaveTrends persists the annotated series of a run.
func (r *Repository) SaveTrends(ctx context.Context, runID int64, trends map[string][]domain.TrendSeries) error {
    batch := &pgx.Batch{}
    n := 0
    const q = `INSERT INTO trend_series(run_id, dimension, value, label, anomalous_months)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (run_id, dimension, value) DO UPDATE SET
            label=EXCLUDED.label, anomalous_months=EXCLUDED.anomalous_months`
    for _, series := range trends {
        for _, s := range series {
            months := make([]string, 0, len(s.AnomalousMonths))
            for _, m := range s.AnomalousMonths { months = append(months, m.String()) }
            batch.Queue(q, runID, s.Dimension, s.Value, string(s.Label), months)
            n++
        }
    }
    if n == 0 { return nil }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for i := 0; i < n; i++ { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// LoadTables rebuilds the pivots of a stored run. Ordering matches what the
// pipeline emits: buckets chronological, rows by total descending then value.
func (r *Repository) LoadTables(ctx context.Context, runID int64) (map[string]*domain.AggregationTable, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT dimension, value, month_bucket, count
        FROM aggregation_cells WHERE run_id=$1`, runID)
    if err != nil { return nil, err }
    defer rows.Close()

    type cell struct {
        value  string
        bucket domain.MonthYear
        count  int
    }
    byDim := map[string][]cell{}
    for rows.Next() {
        var dim, val, bucket string
        var count int
        if err := rows.Scan(&dim, &val, &bucket, &count); err != nil { return nil, err }
        my, err := domain.ParseMonthYear(bucket)
        if err != nil { return nil, err }
        byDim[dim] = append(byDim[dim], cell{value: val, bucket: my, count: count})
    }
    if err := rows.Err(); err != nil { return nil, err }

    out := map[string]*domain.AggregationTable{}
    for dim, cells := range byDim {
        bucketSet := map[domain.MonthYear]struct{}{}
        byValue := map[string]map[domain.MonthYear]int{}
        for _, c := range cells {
            bucketSet[c.bucket] = struct{}{}
            if byValue[c.value] == nil { byValue[c.value] = map[domain.MonthYear]int{} }
            byValue[c.value][c.bucket] = c.count
        }
        buckets := make([]domain.MonthYear, 0, len(bucketSet))
        for b := range bucketSet { buckets = append(buckets, b) }
        sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

        t := &domain.AggregationTable{Dimension: dim, Buckets: buckets}
        for val, byBucket := range byValue {
            row := domain.AggregationRow{Value: val, Counts: make([]int, len(buckets))}
            for i, b := range buckets {
                row.Counts[i] = byBucket[b]
                row.Total += byBucket[b]
            }
            t.GrandTotal += row.Total
            t.Rows = append(t.Rows, row)
        }
        for i := range t.Rows {
            if t.GrandTotal > 0 { t.Rows[i].Percent = float64(t.Rows[i].Total) / float64(t.GrandTotal) }
        }
        sort.Slice(t.Rows, func(i, j int) bool {
            if t.Rows[i].Total != t.Rows[j].Total { return t.Rows[i].Total > t.Rows[j].Total }
            return t.Rows[i].Value < t.Rows[j].Value
        })
        out[dim] = t
    }
    return out, nil
}

type StoredTrend struct {
    Dimension       string   `json:"dimension"`
    Value           string   `json:"value"`
    Label           string   `json:"label"`
    AnomalousMonths []string `json:"anomalous_months"`
}

func (r *Repository) LoadTrends(ctx context.Context, runID int64) ([]StoredTrend, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT dimension, value, label, coalesce(anomalous_months,'{}')
        FROM trend_series WHERE run_id=$1 ORDER BY dimension, value`, runID)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []StoredTrend
    for rows.Next() {
        var t StoredTrend
        if err := rows.Scan(&t.Dimension, &t.Value, &t.Label, &t.AnomalousMonths); err != nil { return nil, err }
        out = append(out, t)
    }
    return out, rows.Err()
}
