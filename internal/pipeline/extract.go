/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package pipeline

import (
    "regexp"
    "strings"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

// Unknown is the explicit fallback value for every category the heuristics
// cannot resolve. It is a real bucket, never a silent drop.
const Unknown = "Unknown"

type customerRule struct {
    confidence domain.Confidence
    re         *regexp.Regexp
}

// Extractor recovers the integration app and customer name from free text via
// ordered rule lists, first match wins. Rules carry a confidence class so
// downstream consumers can discount low-grade extractions.
type Extractor struct {
    apps     []string // priority order
    needles  []string // lowercased, aligned with apps
    rules    []customerRule
    stoplist map[string]struct{}
    appSet   map[string]struct{}
    capToken *regexp.Regexp
}

func NewExtractor(cfg AnalysisConfig) (*Extractor, error) {
    e := &Extractor{
        apps:     cfg.AppPatterns,
        stoplist: map[string]struct{}{},
        appSet:   map[string]struct{}{},
        capToken: regexp.MustCompile(`^[A-Z][a-z][A-Za-z0-9.&'-]*$`),
    }
    for _, a := range cfg.AppPatterns {
        e.needles = append(e.needles, strings.ToLower(a))
        e.appSet[strings.ToLower(a)] = struct{}{}
        // multi-word app names also block their individual words as customer
        // candidates ("Microsoft Teams" should not yield customer "Microsoft")
        for _, w := range strings.Fields(strings.ToLower(a)) { e.appSet[w] = struct{}{} }
    }
    for _, s := range cfg.CustomerStoplist { e.stoplist[strings.ToLower(s)] = struct{}{} }
    for _, r := range cfg.CustomerRules {
        re, err := regexp.Compile(r.Pattern)
        if err != nil { return nil, &ConfigurationError{Field: "customer_patterns", Reason: err.Error()} }
        e.rules = append(e.rules, customerRule{confidence: r.Confidence, re: re})
    }
    return e, nil
}

// App returns the first configured application pattern contained in the text,
// case-insensitive. The priority list defines a total order, so ties cannot
// occur. No match resolves to Unknown.
func (e *Extractor) App(text string) string {
    if text == "" { return Unknown }
    lower := strings.ToLower(text)
    for i, needle := range e.needles {
        if strings.Contains(lower, needle) { return e.apps[i] }
    }
    return Unknown
}

// Customer evaluates the configured rules top-down and returns the first
// candidate the cleanup accepts, tagged with the rule's confidence. Within a
// rule it takes the first occurrence in reading order; it never disambiguates
// between matches of the same class. When every rule misses, a single
// capitalized token is taken as a low-confidence, best-effort signal.
func (e *Extractor) Customer(text string) (string, domain.Confidence) {
    if text == "" { return Unknown, domain.ConfidenceNone }
    for _, r := range e.rules {
        m := r.re.FindStringSubmatch(text)
        if len(m) < 2 { continue }
        if name, ok := e.cleanCandidate(m[1]); ok { return name, r.confidence }
    }
    if name, ok := e.singleTokenFallback(text); ok { return name, domain.ConfidenceLow }
    return Unknown, domain.ConfidenceNone
}

// cleanCandidate trims a raw capture down to a plausible customer name and
// rejects markup and placeholder values.
func (e *Extractor) cleanCandidate(raw string) (string, bool) {
    name := raw
    for _, sep := range []string{"||", "—", "–", " - "} {
        if i := strings.Index(name, sep); i >= 0 { name = name[:i] }
    }
    if i := strings.Index(name, "(Tier"); i >= 0 { name = name[:i] }
    name = strings.Trim(strings.TrimSpace(name), ".,;:")
    if len(name) <= 2 { return "", false }
    lower := strings.ToLower(name)
    if _, bad := e.stoplist[lower]; bad { return "", false }
    if _, app := e.appSet[lower]; app { return "", false }
    for _, p := range []string{"h1.", "h2.", "*", "#"} {
        if strings.HasPrefix(name, p) { return "", false }
    }
    return name, true
}

// singleTokenFallback scans tokens in reading order, skipping the leading
// token of the text (usually sentence case, not a name).
func (e *Extractor) singleTokenFallback(text string) (string, bool) {
    tokens := strings.Fields(text)
    for i, tok := range tokens {
        if i == 0 { continue }
        tok = strings.Trim(tok, ".,;:()[]{}\"'")
        if !e.capToken.MatchString(tok) { continue }
        lower := strings.ToLower(tok)
        if _, bad := e.stoplist[lower]; bad { continue }
        if _, app := e.appSet[lower]; app { continue }
        if len(tok) <= 2 { continue }
        return tok, true
    }
    return "", false
}
