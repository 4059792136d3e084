/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "time"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// Enricher derives the temporal buckets and extracted entities for one Issue.
// Enrichment is pure and deterministic; it never mutates its input.
type Enricher struct {
    ranges    []HolidayRange
    offSeason string
    ext       *Extractor
}

func NewEnricher(cfg AnalysisConfig, ext *Extractor) *Enricher {
    return &Enricher{ranges: cfg.HolidayRanges, offSeason: cfg.OffSeasonName, ext: ext}
}

func (e *Enricher) Enrich(iss domain.Issue) domain.EnrichedIssue {
    out := domain.EnrichedIssue{Issue: iss}
    out.MonthYear = domain.MonthYearOf(iss.CreatedAt)
    out.Quarter = (int(iss.CreatedAt.Month())-1)/3 + 1
    if iss.ResolvedAt != nil && !iss.ResolvedAt.Before(iss.CreatedAt) {
        d := iss.ResolvedAt.Sub(iss.CreatedAt)
        out.ResolutionTime = &d
    }
    text := iss.Summary
    if iss.Description != "" { text = text + "\n" + iss.Description }
    out.IntegrationApp = e.ext.App(text)
    out.Customer, out.CustomerConfidence = e.ext.Customer(text)
    out.HolidayPeriod = e.HolidayPeriod(iss.CreatedAt)
    return out
}

// HolidayPeriod classifies a timestamp against the configured ranges in
// priority order, first match wins. Ranges are inclusive of both endpoints and
// compare month/day only; a range whose start is after its end wraps the year
// boundary (Dec 24 through Jan 1 covers Dec 26 and the following Jan 1).
// Classification is total: anything unmatched is the off-season bucket.
func (e *Enricher) HolidayPeriod(t time.Time) string {
    md := int(t.Month())*100 + t.Day()
    for _, r := range e.ranges {
        start := r.StartMonth*100 + r.StartDay
        end := r.EndMonth*100 + r.EndDay
        if start <= end {
            if md >= start && md <= end { return r.Name }
        } else if md >= start || md <= end {
            return r.Name
        }
    }
    return e.offSeason
}
