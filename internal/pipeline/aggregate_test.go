package pipeline

import (
    "reflect"
    "testing"
    "time"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

func enrichedFixture() []domain.EnrichedIssue {
    mk := func(id, app string, year int, month time.Month) domain.EnrichedIssue {
        return domain.EnrichedIssue{
            Issue:          domain.Issue{ID: id, CreatedAt: time.Date(year, month, 10, 0, 0, 0, 0, time.UTC)},
            MonthYear:      domain.MonthYear{Year: year, Month: month},
            IntegrationApp: app,
        }
    }
    return []domain.EnrichedIssue{
        mk("CS-1", "Salesforce", 2024, time.November),
        mk("CS-2", "Salesforce", 2024, time.December),
        mk("CS-3", "Salesforce", 2024, time.December),
        mk("CS-4", "Shopify", 2024, time.November),
        mk("CS-5", "", 2024, time.October), // lands in the Unknown bucket
    }
}

func TestAggregate_CellSumsMatchGrandTotal(t *testing.T) {
    table := Aggregate(DimIntegrationApp, enrichedFixture(), SelectIntegrationApp, ByCreatedMonth)
    sum := 0
    for _, row := range table.Rows {
        rowSum := 0
        for _, c := range row.Counts { rowSum += c }
        if rowSum != row.Total { t.Fatalf("row %q cells sum to %d, total %d", row.Value, rowSum, row.Total) }
        sum += row.Total
    }
    if sum != table.GrandTotal || table.GrandTotal != 5 {
        t.Fatalf("cells sum to %d, grand total %d", sum, table.GrandTotal)
    }
}

func TestAggregate_UnknownIsARealBucket(t *testing.T) {
    table := Aggregate(DimIntegrationApp, enrichedFixture(), SelectIntegrationApp, ByCreatedMonth)
    found := false
    for _, row := range table.Rows {
        if row.Value == Unknown { found = true }
    }
    if !found { t.Fatalf("Unknown bucket missing from rows: %+v", table.Rows) }
}

func TestAggregate_DeterministicOrdering(t *testing.T) {
    table := Aggregate(DimIntegrationApp, enrichedFixture(), SelectIntegrationApp, ByCreatedMonth)
    wantBuckets := []domain.MonthYear{{Year: 2024, Month: 10}, {Year: 2024, Month: 11}, {Year: 2024, Month: 12}}
    if !reflect.DeepEqual(table.Buckets, wantBuckets) { t.Fatalf("buckets = %v", table.Buckets) }
    // Salesforce (3) first, then the 1-count rows tie-broken by value
    wantValues := []string{"Salesforce", "Shopify", Unknown}
    for i, row := range table.Rows {
        if row.Value != wantValues[i] { t.Fatalf("row %d = %q, want %q", i, row.Value, wantValues[i]) }
    }
    if p := table.Rows[0].Percent; p != 0.6 { t.Fatalf("Salesforce percent = %v", p) }
}

func TestAggregate_OrderIndependentOfInput(t *testing.T) {
    issues := enrichedFixture()
    reversed := make([]domain.EnrichedIssue, len(issues))
    for i, iss := range issues { reversed[len(issues)-1-i] = iss }
    a := Aggregate(DimIntegrationApp, issues, SelectIntegrationApp, ByCreatedMonth)
    b := Aggregate(DimIntegrationApp, reversed, SelectIntegrationApp, ByCreatedMonth)
    if !reflect.DeepEqual(a, b) { t.Fatalf("aggregation depends on input order") }
}

func TestTopN_KeepsGrandTotal(t *testing.T) {
    table := Aggregate(DimIntegrationApp, enrichedFixture(), SelectIntegrationApp, ByCreatedMonth)
    top := TopN(table, 2)
    if len(top.Rows) != 2 { t.Fatalf("rows = %d", len(top.Rows)) }
    if top.Rows[0].Value != "Salesforce" || top.Rows[1].Value != "Shopify" {
        t.Fatalf("top rows = %+v", top.Rows)
    }
    if top.GrandTotal != table.GrandTotal { t.Fatalf("grand total changed: %d", top.GrandTotal) }
    if all := TopN(table, 0); len(all.Rows) != len(table.Rows) {
        t.Fatalf("n<=0 should keep all rows, got %d", len(all.Rows))
    }
}
