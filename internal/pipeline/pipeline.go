/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "fmt"
    "sync"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// Table dimensions produced by every run.
const (
    DimIntegrationApp = "integration_app"
    DimResolution     = "resolution"
    DimRootCause      = "root_cause"
    DimHolidayPeriod  = "holiday_period"
)

// Result is everything one run produces. Tables and trends are keyed by
// dimension name; TopApps is the ranked cut of the integration-app table.
type Result struct {
    Report  NormalizeReport
    Issues  []domain.EnrichedIssue
    Tables  map[string]*domain.AggregationTable
    TopApps *domain.AggregationTable
    Trends  map[string][]domain.TrendSeries
}

// Pipeline runs the full analysis over a batch of raw records. A Pipeline is
// a pure function of its configuration: identical input and configuration
// always produce identical output, and no state survives between runs.
type Pipeline struct {
    cfg  AnalysisConfig
    log  zerolog.Logger
    norm *Normalizer
    enr  *Enricher
    det  *TrendDetector
}

func New(cfg AnalysisConfig, log zerolog.Logger) (*Pipeline, error) {
    if err := cfg.Validate(); err != nil { return nil, err }
    ext, err := NewExtractor(cfg)
    if err != nil { return nil, err }
    return &Pipeline{
        cfg:  cfg,
        log:  log,
        norm: NewNormalizer(cfg, log),
        enr:  NewEnricher(cfg, ext),
        det:  NewTrendDetector(cfg),
    }, nil
}

var dimensions = []struct {
    name     string
    category CategorySelector
}{
    {DimIntegrationApp, SelectIntegrationApp},
    {DimResolution, SelectResolution},
    {DimRootCause, SelectRootCause},
    {DimHolidayPeriod, SelectHolidayPeriod},
}

// Run normalizes, enriches, aggregates and annotates the batch. Individual
// bad records are reported and skipped; the run fails only when the batch
// exceeds the capacity ceiling or nothing usable remains after normalization.
func (p *Pipeline) Run(records []map[string]any) (*Result, error) {
    if len(records) > p.cfg.MaxRecords {
        return nil, &CapacityError{Observed: len(records), Allowed: p.cfg.MaxRecords}
    }
    issues, report := p.norm.Normalize(records)
    if len(issues) == 0 {
        return nil, fmt.Errorf("%w (%d records, %d failures)", ErrNoUsableRecords, report.Total, report.Skipped)
    }
    enriched := p.enrichAll(issues)

    res := &Result{
        Report: report,
        Issues: enriched,
        Tables: map[string]*domain.AggregationTable{},
        Trends: map[string][]domain.TrendSeries{},
    }
    for _, dim := range dimensions {
        t := Aggregate(dim.name, enriched, dim.category, ByCreatedMonth)
        res.Tables[dim.name] = t
        res.Trends[dim.name] = p.det.SeriesFromTable(t)
    }
    res.TopApps = TopN(res.Tables[DimIntegrationApp], p.cfg.TopN)
    p.log.Info().
        Int("records", report.Total).
        Int("accepted", report.Accepted).
        Int("skipped", report.Skipped).
        Int("tables", len(res.Tables)).
        Msg("pipeline: run complete")
    return res, nil
}

// enrichAll fans enrichment out over a bounded worker pool. Enrichment is
// record-independent, so results land at their input index and output order
// never depends on scheduling.
func (p *Pipeline) enrichAll(issues []domain.Issue) []domain.EnrichedIssue {
    out := make([]domain.EnrichedIssue, len(issues))
    workers := p.cfg.Workers
    if workers <= 1 || len(issues) < 2 {
        for i, iss := range issues { out[i] = p.enr.Enrich(iss) }
        return out
    }
    jobs := make(chan int)
    var wg sync.WaitGroup
    for w := 0; w < workers; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for i := range jobs { out[i] = p.enr.Enrich(issues[i]) }
        }()
    }
    for i := range issues { jobs <- i }
    close(jobs)
    wg.Wait()
    return out
}
