/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "encoding/json"
    "fmt"
    "os"
    "regexp"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// HolidayRange is a named month/day window, year-independent. A range whose
// start is after its end (Christmas Week) wraps across the year boundary.
type HolidayRange struct {
    Name       string `json:"name"`
    StartMonth int    `json:"start_month"`
    StartDay   int    `json:"start_day"`
    EndMonth   int    `json:"end_month"`
    EndDay     int    `json:"end_day"`
}

// CustomerRule is one entry of the ordered customer-extraction rule list. The
// pattern must expose the candidate name as capture group 1.
type CustomerRule struct {
    Confidence domain.Confidence `json:"confidence"`
    Pattern    string            `json:"pattern"`
}

// AnalysisConfig carries everything the pipeline is parameterized on. It is
// immutable once handed to New; runs never mutate it.
type AnalysisConfig struct {
    FieldAliases map[string][]string `json:"field_aliases"`
    DateFormats  []string            `json:"date_formats"`

    AppPatterns      []string       `json:"app_patterns"`
    CustomerRules    []CustomerRule `json:"customer_patterns"`
    CustomerStoplist []string       `json:"customer_stoplist"`

    HolidayRanges []HolidayRange `json:"holiday_ranges"`
    OffSeasonName string         `json:"off_season_name"`

    TrendThreshold     float64 `json:"trend_threshold"`
    MinTrendPoints     int     `json:"min_trend_points"`
    AnomalyWindow      int     `json:"anomaly_window"`
    AnomalySensitivity float64 `json:"anomaly_sensitivity"`

    MaxRecords int `json:"max_records"`
    TopN       int `json:"top_n"`
    Workers    int `json:"workers"`
}

// DefaultAnalysisConfig mirrors the pattern lists and thresholds the reporting
// suite shipped with before they became configurable.
func DefaultAnalysisConfig() AnalysisConfig {
    return AnalysisConfig{
        FieldAliases: map[string][]string{
            "id":          {"Key", "JIRA ID", "Issue Key", "key", "id"},
            "summary":     {"Summary", "JIRA Text", "Title", "summary"},
            "description": {"Description", "description"},
            "status":      {"Status", "status"},
            "priority":    {"Priority", "priority"},
            "created_at":  {"Created", "Created Date", "created"},
            "updated_at":  {"Updated", "Updated Date", "updated"},
            "resolved_at": {"Resolved", "Resolved Date", "Resolution Date", "resolutiondate"},
            "assignee":    {"Assignee", "assignee"},
            "reporter":    {"Reporter", "reporter"},
            "resolution":  {"Resolution", "resolution"},
            "root_cause":  {"Root Cause", "Custom field (Root Cause)", "root_cause"},
        },
        DateFormats: []string{
            "2006-01-02T15:04:05.999999999Z07:00",
            "2006-01-02T15:04:05Z07:00",
            "2006-01-02T15:04:05.000-0700",
            "2006-01-02T15:04:05-0700",
            "2006-01-02 15:04:05",
            "2006-01-02",
        },
        AppPatterns: []string{
            "Salesforce", "NetSuite IA", "NetSuite", "SAP Business ByDesign", "Shopify",
            "Amazon", "HubSpot", "Zendesk", "Slack", "Microsoft Teams", "Zoom",
            "Google Workspace", "AWS", "Azure", "ServiceNow", "Jira", "Confluence",
            "Trello", "Asana", "Monday.com",
        },
        CustomerRules: []CustomerRule{
            {Confidence: domain.ConfidenceHigh, Pattern: `(?i)\b(?:customer|account|company|client|user|organization|business|enterprise)(?:\s+name)?\s*:\s*([^\n]+)`},
            {Confidence: domain.ConfidenceMedium, Pattern: `\b(?:for|client)\s+((?:[A-Z][A-Za-z0-9&.'-]*\s+)+[A-Z][A-Za-z0-9&.'-]*)`},
        },
        CustomerStoplist: []string{
            "none", "unknown", "n/a", "na", "tbd", "to be determined",
            "internal", "test", "demo", "sample", "example",
        },
        HolidayRanges: []HolidayRange{
            {Name: "Black Friday Week", StartMonth: 11, StartDay: 20, EndMonth: 11, EndDay: 27},
            {Name: "Cyber Monday", StartMonth: 11, StartDay: 27, EndMonth: 12, EndDay: 1},
            {Name: "Holiday Shopping", StartMonth: 12, StartDay: 1, EndMonth: 12, EndDay: 24},
            {Name: "Christmas Week", StartMonth: 12, StartDay: 24, EndMonth: 1, EndDay: 1},
            {Name: "New Year Recovery", StartMonth: 1, StartDay: 1, EndMonth: 1, EndDay: 15},
        },
        OffSeasonName: "Off-Season",

        TrendThreshold:     0.15,
        MinTrendPoints:     2,
        AnomalyWindow:      4,
        AnomalySensitivity: 2.0,

        MaxRecords: 50000,
        TopN:       10,
        Workers:    4,
    }
}

// LoadAnalysisConfig reads a JSON overlay and applies it over the defaults.
// Only keys present in the file replace their default.
func LoadAnalysisConfig(path string) (AnalysisConfig, error) {
    cfg := DefaultAnalysisConfig()
    if path == "" { return cfg, nil }
    data, err := os.ReadFile(path)
    if err != nil { return cfg, &ConfigurationError{Field: "analysis_config", Reason: err.Error()} }
    if err := json.Unmarshal(data, &cfg); err != nil {
        return cfg, &ConfigurationError{Field: "analysis_config", Reason: err.Error()}
    }
    return cfg, nil
}

// Validate rejects a config the pipeline cannot run with. Called once at
// startup; all failures are ConfigurationError.
func (c AnalysisConfig) Validate() error {
    if len(c.FieldAliases["id"]) == 0 || len(c.FieldAliases["created_at"]) == 0 {
        return &ConfigurationError{Field: "field_aliases", Reason: "aliases for id and created_at are required"}
    }
    if len(c.DateFormats) == 0 {
        return &ConfigurationError{Field: "date_formats", Reason: "at least one accepted format is required"}
    }
    if len(c.AppPatterns) == 0 {
        return &ConfigurationError{Field: "app_patterns", Reason: "empty pattern list"}
    }
    for _, r := range c.CustomerRules {
        switch r.Confidence {
        case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
        default:
            return &ConfigurationError{Field: "customer_patterns", Reason: fmt.Sprintf("invalid confidence %q", r.Confidence)}
        }
        re, err := regexp.Compile(r.Pattern)
        if err != nil { return &ConfigurationError{Field: "customer_patterns", Reason: err.Error()} }
        if re.NumSubexp() < 1 {
            return &ConfigurationError{Field: "customer_patterns", Reason: fmt.Sprintf("pattern %q has no capture group", r.Pattern)}
        }
    }
    for _, h := range c.HolidayRanges {
        if h.Name == "" { return &ConfigurationError{Field: "holiday_ranges", Reason: "unnamed range"} }
        if h.StartMonth < 1 || h.StartMonth > 12 || h.EndMonth < 1 || h.EndMonth > 12 ||
            h.StartDay < 1 || h.StartDay > 31 || h.EndDay < 1 || h.EndDay > 31 {
            return &ConfigurationError{Field: "holiday_ranges", Reason: fmt.Sprintf("range %q has out-of-bounds month/day", h.Name)}
        }
    }
    if c.OffSeasonName == "" {
        return &ConfigurationError{Field: "off_season_name", Reason: "must be set"}
    }
    if c.TrendThreshold <= 0 {
        return &ConfigurationError{Field: "trend_threshold", Reason: "must be positive"}
    }
    if c.MinTrendPoints < 1 {
        return &ConfigurationError{Field: "min_trend_points", Reason: "must be at least 1"}
    }
    if c.AnomalyWindow < 1 {
        return &ConfigurationError{Field: "anomaly_window", Reason: "must be at least 1"}
    }
    if c.AnomalySensitivity <= 0 {
        return &ConfigurationError{Field: "anomaly_sensitivity", Reason: "must be positive"}
    }
    if c.MaxRecords < 1 {
        return &ConfigurationError{Field: "max_records", Reason: "must be at least 1"}
    }
    return nil
}
