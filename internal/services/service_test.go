package services

import (
    "context"
    "strings"
    "sync"
    "sync/atomic"
    "testing"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/pipeline"
)

type stubJira struct {
    fieldCalls int32
    fields     []map[string]any
}

func (j *stubJira) SearchAll(ctx context.Context, jql string) ([]map[string]any, error) {
    return nil, nil
}

func (j *stubJira) Fields(ctx context.Context) ([]map[string]any, error) {
    atomic.AddInt32(&j.fieldCalls, 1)
    return j.fields, nil
}

func TestRenameCustomFieldsConcurrentRuns(t *testing.T) {
    jc := &stubJira{fields: []map[string]any{
        {"id": "customfield_10100", "name": "Root Cause"},
        {"id": "summary", "name": "Summary"},
    }}
    s := &Service{jira: jc, log: zerolog.Nop()}

    const runs = 8
    batches := make([][]map[string]any, runs)
    for i := range batches {
        batches[i] = []map[string]any{{"customfield_10100": "Data Mapping", "Summary": "sync broke"}}
    }
    var wg sync.WaitGroup
    for i := 0; i < runs; i++ {
        wg.Add(1)
        go func(recs []map[string]any) {
            defer wg.Done()
            s.renameCustomFields(context.Background(), recs)
        }(batches[i])
    }
    wg.Wait()

    if n := atomic.LoadInt32(&jc.fieldCalls); n != 1 {
        t.Fatalf("field discovery ran %d times, want 1", n)
    }
    for i, recs := range batches {
        if recs[0]["Root Cause"] != "Data Mapping" { t.Fatalf("batch %d: custom field not renamed: %v", i, recs[0]) }
        if _, ok := recs[0]["customfield_10100"]; ok { t.Fatalf("batch %d: raw id survived: %v", i, recs[0]) }
    }
}

func TestEscMarkdownV2(t *testing.T) {
    in := "Top apps (Nov-Dec): Salesforce_1!"
    out := esc(in)
    for _, ch := range []string{"\\(", "\\)", "\\-", "\\_", "\\!"} {
        if !strings.Contains(out, ch) { t.Fatalf("missing escape %q in %q", ch, out) }
    }
}

func TestChunkTextBreaksOnLines(t *testing.T) {
    text := strings.Repeat("line one\n", 10)
    chunks := chunkText(strings.TrimSpace(text), 30)
    if len(chunks) < 2 { t.Fatalf("expected multiple chunks, got %d", len(chunks)) }
    for _, c := range chunks {
        if len([]rune(c)) > 30 { t.Fatalf("chunk exceeds limit: %q", c) }
    }
}

func TestChunkTextHardSplitsLongLine(t *testing.T) {
    chunks := chunkText(strings.Repeat("x", 95), 30)
    if len(chunks) != 4 { t.Fatalf("expected 4 chunks, got %d", len(chunks)) }
}

func TestRenderDigestIncludesSections(t *testing.T) {
    s := &Service{}
    res := &pipeline.Result{
        Report: pipeline.NormalizeReport{Total: 12, Accepted: 10, Skipped: 2},
        Tables: map[string]*domain.AggregationTable{
            pipeline.DimHolidayPeriod: {
                Dimension:  pipeline.DimHolidayPeriod,
                Rows:       []domain.AggregationRow{{Value: "Black Friday Week", Total: 6}, {Value: "Off-Season", Total: 4}},
                GrandTotal: 10,
            },
        },
        TopApps: &domain.AggregationTable{
            Dimension:  pipeline.DimIntegrationApp,
            Rows:       []domain.AggregationRow{{Value: "Salesforce", Total: 7, Percent: 0.7}},
            GrandTotal: 10,
        },
        Trends: map[string][]domain.TrendSeries{
            pipeline.DimIntegrationApp: {
                {
                    Dimension:       pipeline.DimIntegrationApp,
                    Value:           "Salesforce",
                    Label:           domain.TrendIncreasing,
                    AnomalousMonths: []domain.MonthYear{{Year: 2024, Month: 11}},
                },
            },
        },
    }
    digest := s.renderDigest(res)
    for _, want := range []string{"Salesforce", "increasing", "Black Friday Week", "2024\\-11", "10 analyzed, 2 skipped"} {
        if !strings.Contains(digest, want) { t.Fatalf("digest missing %q:\n%s", want, digest) }
    }
}

func TestPickNotableSeriesSkipsQuietRows(t *testing.T) {
    series := []domain.TrendSeries{
        {Value: "Salesforce", Label: domain.TrendStable},
        {Value: "Shopify", Label: domain.TrendIncreasing},
        {Value: "Zendesk", Label: domain.TrendStable, AnomalousMonths: []domain.MonthYear{{Year: 2024, Month: 12}}},
    }
    moving, anomalous := pickNotableSeries(series)
    if len(moving) != 1 || moving[0].Value != "Shopify" { t.Fatalf("moving = %+v", moving) }
    if len(anomalous) != 1 || anomalous[0].Value != "Zendesk" { t.Fatalf("anomalous = %+v", anomalous) }
}
