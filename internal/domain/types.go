package domain

import (
    "fmt"
    "time"
)

// Issue is the canonical record produced by normalization. CreatedAt is always
// present; ResolvedAt set means the issue is resolved.
type Issue struct {
    ID          string
    Summary     string
    Description string
    Status      string
    Priority    string
    CreatedAt   time.Time
    UpdatedAt   *time.Time
    ResolvedAt  *time.Time
    Assignee    string
    Reporter    string
    Resolution  string
    RootCause   string
    RawFields   map[string]string
}

func (i Issue) Resolved() bool { return i.ResolvedAt != nil }

// Confidence grades a heuristically extracted entity value.
type Confidence string

const (
    ConfidenceHigh   Confidence = "high"
    ConfidenceMedium Confidence = "medium"
    ConfidenceLow    Confidence = "low"
    ConfidenceNone   Confidence = "none"
)

// MonthYear is a calendar month bucket; prints as "2024-11".
type MonthYear struct {
    Year  int
    Month time.Month
}

func MonthYearOf(t time.Time) MonthYear { return MonthYear{Year: t.Year(), Month: t.Month()} }

func (m MonthYear) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m MonthYear) Before(o MonthYear) bool {
    if m.Year != o.Year { return m.Year < o.Year }
    return m.Month < o.Month
}

// ParseMonthYear is the inverse of String.
func ParseMonthYear(s string) (MonthYear, error) {
    var y, mo int
    if _, err := fmt.Sscanf(s, "%d-%d", &y, &mo); err != nil {
        return MonthYear{}, fmt.Errorf("bad month bucket %q: %w", s, err)
    }
    if mo < 1 || mo > 12 { return MonthYear{}, fmt.Errorf("bad month bucket %q", s) }
    return MonthYear{Year: y, Month: time.Month(mo)}, nil
}

// EnrichedIssue is an Issue plus derived temporal and extracted-entity fields.
type EnrichedIssue struct {
    Issue
    MonthYear          MonthYear
    Quarter            int
    ResolutionTime     *time.Duration
    IntegrationApp     string
    Customer           string
    CustomerConfidence Confidence
    HolidayPeriod      string
}

// AggregationRow holds one category value's counts across month buckets.
type AggregationRow struct {
    Value   string
    Counts  []int // aligned with AggregationTable.Buckets
    Total   int
    Percent float64
}

// AggregationTable is a category x month pivot. Rows are ordered by total
// descending, ties by value ascending; buckets are chronological. The sum of
// all cells equals the number of issues that produced the table.
type AggregationTable struct {
    Dimension  string
    Buckets    []MonthYear
    Rows       []AggregationRow
    GrandTotal int
}

type TrendLabel string

const (
    TrendIncreasing TrendLabel = "increasing"
    TrendDecreasing TrendLabel = "decreasing"
    TrendStable     TrendLabel = "stable"
)

type TrendPoint struct {
    Bucket MonthYear
    Count  int
}

// TrendSeries is one category value's month-by-month counts plus derived
// trend/anomaly annotations.
type TrendSeries struct {
    Dimension       string
    Value           string
    Points          []TrendPoint
    Label           TrendLabel
    AnomalousMonths []MonthYear
}
