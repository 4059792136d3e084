/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "fmt"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// Normalizer maps heterogeneous source field names onto the canonical Issue
// schema. Records missing id or created_at are skipped and reported, never
// fatal.
type Normalizer struct {
    aliases map[string]string // lowercased source name -> canonical field
    formats []string
    log     zerolog.Logger
}

func NewNormalizer(cfg AnalysisConfig, log zerolog.Logger) *Normalizer {
    aliases := map[string]string{}
    for canonical, names := range cfg.FieldAliases {
        for _, n := range names { aliases[strings.ToLower(strings.TrimSpace(n))] = canonical }
    }
    return &Normalizer{aliases: aliases, formats: cfg.DateFormats, log: log}
}

func (n *Normalizer) Normalize(records []map[string]any) ([]domain.Issue, NormalizeReport) {
    report := NormalizeReport{Total: len(records)}
    issues := make([]domain.Issue, 0, len(records))
    for idx, rec := range records {
        iss, err := n.normalizeOne(rec)
        if err != nil {
            report.Skipped++
            report.Failures = append(report.Failures, RecordFailure{Index: idx, ID: iss.ID, Reason: err.Error()})
            n.log.Warn().Int("record", idx).Str("id", iss.ID).Str("reason", err.Error()).Msg("normalize: record skipped")
            continue
        }
        issues = append(issues, iss)
    }
    report.Accepted = len(issues)
    return issues, report
}

func (n *Normalizer) normalizeOne(rec map[string]any) (domain.Issue, error) {
    iss := domain.Issue{RawFields: map[string]string{}}
    fields := map[string]string{}
    for name, v := range rec {
        val := toStr(v)
        canonical, ok := n.aliases[strings.ToLower(strings.TrimSpace(name))]
        if !ok {
            if val != "" { iss.RawFields[name] = val }
            continue
        }
        // first non-empty value wins when two source names alias the same field
        if _, seen := fields[canonical]; !seen || fields[canonical] == "" { fields[canonical] = val }
    }
    iss.ID = strings.TrimSpace(fields["id"])
    iss.Summary = fields["summary"]
    iss.Description = fields["description"]
    iss.Status = strings.TrimSpace(fields["status"])
    iss.Priority = strings.TrimSpace(fields["priority"])
    iss.Assignee = strings.TrimSpace(fields["assignee"])
    iss.Reporter = strings.TrimSpace(fields["reporter"])
    iss.Resolution = strings.TrimSpace(fields["resolution"])
    iss.RootCause = strings.TrimSpace(fields["root_cause"])
    if iss.ID == "" { return iss, fmt.Errorf("missing required field id") }

    created := n.parseTime(fields["created_at"])
    if created == nil {
        if fields["created_at"] == "" { return iss, fmt.Errorf("missing required field created_at") }
        return iss, fmt.Errorf("unparseable created_at %q", fields["created_at"])
    }
    iss.CreatedAt = *created
    iss.UpdatedAt = n.parseOptional(iss.ID, "updated_at", fields["updated_at"])
    iss.ResolvedAt = n.parseOptional(iss.ID, "resolved_at", fields["resolved_at"])
    if iss.ResolvedAt != nil && iss.ResolvedAt.Before(iss.CreatedAt) {
        // created_at <= resolved_at is an invariant of the canonical schema
        n.log.Warn().Str("id", iss.ID).Time("created", iss.CreatedAt).Time("resolved", *iss.ResolvedAt).Msg("normalize: resolved before created, dropping resolved_at")
        iss.ResolvedAt = nil
    }
    return iss, nil
}

// parseOptional treats an unparseable date as missing, logged, not fatal.
func (n *Normalizer) parseOptional(id, field, v string) *time.Time {
    if v == "" { return nil }
    t := n.parseTime(v)
    if t == nil { n.log.Warn().Str("id", id).Str("field", field).Str("value", v).Msg("normalize: unparseable date treated as missing") }
    return t
}

func (n *Normalizer) parseTime(s string) *time.Time {
    s = strings.TrimSpace(s)
    if s == "" { return nil }
    for _, l := range n.formats {
        if t, err := time.Parse(l, s); err == nil { tt := t.UTC(); return &tt }
    }
    return nil
}

// toStr flattens source values, including Jira option objects (maps carrying
// name/value/displayName) and arrays of them.
func toStr(v any) string {
    if v == nil { return "" }
    switch t := v.(type) {
    case string:
        return t
    case map[string]any:
        if s, ok := t["value"].(string); ok { return s }
        if s, ok := t["name"].(string); ok { return s }
        if s, ok := t["displayName"].(string); ok { return s }
        return fmt.Sprintf("%v", v)
    case []any:
        vals := make([]string, 0, len(t))
        for _, it := range t {
            if s := toStr(it); s != "" { vals = append(vals, s) }
        }
        return strings.Join(vals, ", ")
    default:
        return fmt.Sprintf("%v", v)
    }
}
