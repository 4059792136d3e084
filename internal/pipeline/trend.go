/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "math"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// TrendDetector labels a monthly series and flags anomalous months.
//
// Trend rule: the mean of the later half of the series is compared to the mean
// of the earlier half; a relative change beyond the configured threshold in
// either direction labels the series, otherwise it is stable. Series shorter
// than the configured minimum are stable by definition.
//
// Anomaly rule (applied uniformly): a month whose count deviates from the mean
// of the full trailing window by more than sensitivity standard deviations of
// that window is anomalous; when the window has zero variance the same
// sensitivity is applied as a multiple of the window mean instead. Months
// without a full trailing window are not evaluated.
type TrendDetector struct {
    threshold   float64
    minPoints   int
    window      int
    sensitivity float64
}

func NewTrendDetector(cfg AnalysisConfig) *TrendDetector {
    return &TrendDetector{
        threshold:   cfg.TrendThreshold,
        minPoints:   cfg.MinTrendPoints,
        window:      cfg.AnomalyWindow,
        sensitivity: cfg.AnomalySensitivity,
    }
}

// Annotate derives the trend label and anomalous months for one series.
func (d *TrendDetector) Annotate(dimension, value string, points []domain.TrendPoint) domain.TrendSeries {
    s := domain.TrendSeries{Dimension: dimension, Value: value, Points: points}
    s.Label = d.label(points)
    s.AnomalousMonths = d.anomalies(points)
    return s
}

// SeriesFromTable turns every row of a pivot into an annotated series. The
// table's bucket order is already chronological and rows are already ranked,
// so the output order is deterministic.
func (d *TrendDetector) SeriesFromTable(t *domain.AggregationTable) []domain.TrendSeries {
    out := make([]domain.TrendSeries, 0, len(t.Rows))
    for _, row := range t.Rows {
        points := make([]domain.TrendPoint, len(t.Buckets))
        for i, b := range t.Buckets {
            points[i] = domain.TrendPoint{Bucket: b, Count: row.Counts[i]}
        }
        out = append(out, d.Annotate(t.Dimension, row.Value, points))
    }
    return out
}

func (d *TrendDetector) label(points []domain.TrendPoint) domain.TrendLabel {
    n := len(points)
    if n < d.minPoints || n < 2 { return domain.TrendStable }
    half := n / 2
    early := mean(points[:half])
    late := mean(points[n-half:])
    if early == 0 {
        if late > 0 { return domain.TrendIncreasing }
        return domain.TrendStable
    }
    rel := (late - early) / early
    switch {
    case rel > d.threshold:
        return domain.TrendIncreasing
    case rel < -d.threshold:
        return domain.TrendDecreasing
    default:
        return domain.TrendStable
    }
}

func (d *TrendDetector) anomalies(points []domain.TrendPoint) []domain.MonthYear {
    var out []domain.MonthYear
    for i := d.window; i < len(points); i++ {
        win := points[i-d.window : i]
        m := mean(win)
        sd := stddev(win, m)
        x := float64(points[i].Count)
        dev := math.Abs(x - m)
        anomalous := false
        if sd > 0 {
            anomalous = dev > d.sensitivity*sd
        } else if m > 0 {
            anomalous = dev > d.sensitivity*m
        }
        if anomalous { out = append(out, points[i].Bucket) }
    }
    return out
}

func mean(points []domain.TrendPoint) float64 {
    if len(points) == 0 { return 0 }
    sum := 0.0
    for _, p := range points { sum += float64(p.Count) }
    return sum / float64(len(points))
}

func stddev(points []domain.TrendPoint, m float64) float64 {
    if len(points) < 2 { return 0 }
    sum := 0.0
    for _, p := range points {
        d := float64(p.Count) - m
        sum += d * d
    }
    return math.Sqrt(sum / float64(len(points)))
}
