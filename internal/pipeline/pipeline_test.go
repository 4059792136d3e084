package pipeline

import (
    "errors"
    "reflect"
    "testing"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

func rawFixture() []map[string]any {
    return []map[string]any{
        {
            "Key":        "CS-1",
            "Summary":    "Customer: Acme Corp — Salesforce integration failing",
            "Created":    "2024-11-21T10:30:00Z",
            "Resolved":   "2024-11-23T08:00:00Z",
            "Resolution": "Done",
        },
        {
            "Key":     "CS-2",
            "Summary": "Shopify checkout webhooks dropped",
            "Created": "2024-12-26T09:00:00Z",
        },
        {
            "Summary": "orphan row without a key",
            "Created": "2024-12-01T00:00:00Z",
        },
    }
}

func TestPipeline_RunEndToEnd(t *testing.T) {
    p, err := New(DefaultAnalysisConfig(), zerolog.Nop())
    if err != nil { t.Fatalf("New: %v", err) }
    res, err := p.Run(rawFixture())
    if err != nil { t.Fatalf("Run: %v", err) }
    if res.Report.Total != 3 || res.Report.Accepted != 2 || res.Report.Skipped != 1 {
        t.Fatalf("report = %+v", res.Report)
    }
    if len(res.Issues) != 2 { t.Fatalf("issues = %d", len(res.Issues)) }
    first := res.Issues[0]
    if first.IntegrationApp != "Salesforce" || first.Customer != "Acme Corp" || first.CustomerConfidence != domain.ConfidenceHigh {
        t.Fatalf("enrichment of CS-1: %+v", first)
    }
    if first.HolidayPeriod != "Black Friday Week" || res.Issues[1].HolidayPeriod != "Christmas Week" {
        t.Fatalf("holiday periods: %q / %q", first.HolidayPeriod, res.Issues[1].HolidayPeriod)
    }
    for _, dim := range []string{DimIntegrationApp, DimResolution, DimRootCause, DimHolidayPeriod} {
        table, ok := res.Tables[dim]
        if !ok { t.Fatalf("missing table %q", dim) }
        if table.GrandTotal != 2 { t.Fatalf("table %q grand total = %d", dim, table.GrandTotal) }
        if len(res.Trends[dim]) != len(table.Rows) {
            t.Fatalf("table %q has %d rows, %d series", dim, len(table.Rows), len(res.Trends[dim]))
        }
    }
    if res.TopApps == nil || res.TopApps.Rows[0].Value != "Salesforce" {
        t.Fatalf("top apps = %+v", res.TopApps)
    }
}

func TestPipeline_RunIsDeterministic(t *testing.T) {
    p, err := New(DefaultAnalysisConfig(), zerolog.Nop())
    if err != nil { t.Fatalf("New: %v", err) }
    a, err := p.Run(rawFixture())
    if err != nil { t.Fatalf("first run: %v", err) }
    b, err := p.Run(rawFixture())
    if err != nil { t.Fatalf("second run: %v", err) }
    if !reflect.DeepEqual(a, b) { t.Fatalf("two runs over the same batch differ") }
}

func TestPipeline_CapacityCeiling(t *testing.T) {
    cfg := DefaultAnalysisConfig()
    cfg.MaxRecords = 2
    p, err := New(cfg, zerolog.Nop())
    if err != nil { t.Fatalf("New: %v", err) }
    _, err = p.Run(rawFixture())
    var capErr *CapacityError
    if !errors.As(err, &capErr) { t.Fatalf("expected CapacityError, got %v", err) }
    if capErr.Observed != 3 || capErr.Allowed != 2 { t.Fatalf("capacity error = %+v", capErr) }
}

func TestPipeline_NoUsableRecords(t *testing.T) {
    p, err := New(DefaultAnalysisConfig(), zerolog.Nop())
    if err != nil { t.Fatalf("New: %v", err) }
    for _, records := range [][]map[string]any{
        nil,
        {{"Summary": "no key"}, {"Summary": "still no key"}},
    } {
        if _, err := p.Run(records); !errors.Is(err, ErrNoUsableRecords) {
            t.Fatalf("expected ErrNoUsableRecords, got %v", err)
        }
    }
}

func TestPipeline_RejectsInvalidConfig(t *testing.T) {
    cfg := DefaultAnalysisConfig()
    cfg.TrendThreshold = 0
    _, err := New(cfg, zerolog.Nop())
    var cfgErr *ConfigurationError
    if !errors.As(err, &cfgErr) { t.Fatalf("expected ConfigurationError, got %v", err) }
    if cfgErr.Field != "trend_threshold" { t.Fatalf("field = %q", cfgErr.Field) }
}

func TestPipeline_SequentialAndParallelEnrichmentAgree(t *testing.T) {
    seq := DefaultAnalysisConfig()
    seq.Workers = 1
    par := DefaultAnalysisConfig()
    par.Workers = 8
    ps, err := New(seq, zerolog.Nop())
    if err != nil { t.Fatalf("New: %v", err) }
    pp, err := New(par, zerolog.Nop())
    if err != nil { t.Fatalf("New: %v", err) }
    a, err := ps.Run(rawFixture())
    if err != nil { t.Fatalf("sequential run: %v", err) }
    b, err := pp.Run(rawFixture())
    if err != nil { t.Fatalf("parallel run: %v", err) }
    if !reflect.DeepEqual(a.Issues, b.Issues) { t.Fatalf("worker pool changed enrichment output") }
}
