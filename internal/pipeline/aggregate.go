/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "sort"
    "strings"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// CategorySelector picks an EnrichedIssue's category value for one table. An
// empty value counts under the Unknown bucket, never dropped.
type CategorySelector func(domain.EnrichedIssue) string

// BucketSelector picks the time bucket an issue falls into.
type BucketSelector func(domain.EnrichedIssue) domain.MonthYear

func SelectIntegrationApp(i domain.EnrichedIssue) string { return i.IntegrationApp }
func SelectResolution(i domain.EnrichedIssue) string     { return i.Resolution }
func SelectRootCause(i domain.EnrichedIssue) string      { return i.RootCause }
func SelectHolidayPeriod(i domain.EnrichedIssue) string  { return i.HolidayPeriod }
func SelectCustomer(i domain.EnrichedIssue) string       { return i.Customer }

func ByCreatedMonth(i domain.EnrichedIssue) domain.MonthYear { return i.MonthYear }

// Aggregate builds a category x month pivot over the issues. Output ordering
// is deterministic regardless of input order: buckets chronological, rows by
// total descending with ties broken by value ascending.
func Aggregate(dimension string, issues []domain.EnrichedIssue, category CategorySelector, bucket BucketSelector) *domain.AggregationTable {
    counts := map[string]map[domain.MonthYear]int{}
    bucketSet := map[domain.MonthYear]struct{}{}
    for _, iss := range issues {
        val := strings.TrimSpace(category(iss))
        if val == "" { val = Unknown }
        b := bucket(iss)
        bucketSet[b] = struct{}{}
        if counts[val] == nil { counts[val] = map[domain.MonthYear]int{} }
        counts[val][b]++
    }
    buckets := make([]domain.MonthYear, 0, len(bucketSet))
    for b := range bucketSet { buckets = append(buckets, b) }
    sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

    table := &domain.AggregationTable{Dimension: dimension, Buckets: buckets, GrandTotal: len(issues)}
    for val, byBucket := range counts {
        row := domain.AggregationRow{Value: val, Counts: make([]int, len(buckets))}
        for i, b := range buckets {
            row.Counts[i] = byBucket[b]
            row.Total += byBucket[b]
        }
        if table.GrandTotal > 0 { row.Percent = float64(row.Total) / float64(table.GrandTotal) }
        table.Rows = append(table.Rows, row)
    }
    sort.Slice(table.Rows, func(i, j int) bool {
        if table.Rows[i].Total != table.Rows[j].Total { return table.Rows[i].Total > table.Rows[j].Total }
        return table.Rows[i].Value < table.Rows[j].Value
    })
    return table
}

// TopN returns a copy of the table keeping the n highest-ranked rows. The
// grand total is left untouched so row percentages keep their meaning.
func TopN(t *domain.AggregationTable, n int) *domain.AggregationTable {
    if n <= 0 || n >= len(t.Rows) { n = len(t.Rows) }
    out := &domain.AggregationTable{Dimension: t.Dimension, Buckets: t.Buckets, GrandTotal: t.GrandTotal}
    out.Rows = append(out.Rows, t.Rows[:n]...)
    return out
}
