/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
)

type Client struct {
    baseURL  string
    token    string
    basic    string
    user     string
    pass     string
    http     *http.Client
    log      zerolog.Logger
    apiVer   string
    pageSize int
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL:  cfg.JiraBaseURL,
        token:    cfg.JiraPAT,
        basic:    getenvBasic(),
        user:     cfg.JiraUsername,
        pass:     cfg.JiraPassword,
        http:     &http.Client{Timeout: cfg.HTTPTimeout},
        log:      log,
        apiVer:   cfg.JiraAPIVersion,
        pageSize: cfg.JiraPageSize,
    }
}

// getenvBasic reads JIRA_BASIC_AUTH from environment if present (format: user:pass base64), optional
func getenvBasic() string {
    v := ""
    if s := strings.TrimSpace(os.Getenv("JIRA_BASIC_AUTH")); s != "" { v = s }
    return v
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if q != nil && len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any) (map[string]any, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var r io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return nil, err }
        r = strings.NewReader(string(b))
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return nil, err }
        if body != nil { req.Header.Set("Content-Type", "application/json") }
        if c.token != "" {
            req.Header.Set("Authorization", "Bearer "+c.token)
        } else if c.user != "" && c.pass != "" {
            req.SetBasicAuth(c.user, c.pass)
        } else if c.basic != "" {
            req.Header.Set("Authorization", "Basic "+c.basic)
        }
        resp, err := c.http.Do(req)
        if err != nil { lastErr = err } else {
            defer resp.Body.Close()
            if resp.StatusCode >= 300 {
                b, _ := io.ReadAll(resp.Body)
                // retry on 429/5xx
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                } else {
                    return nil, fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                }
            } else {
                var out map[string]any
                if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, err }
                return out, nil
            }
        }
        // backoff
        time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
    }
    return nil, lastErr
}

func (c *Client) Search(ctx context.Context, jql string, startAt, max int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    if c.apiVer == "2" {
        q := url.Values{}
        q.Set("jql", jql)
        if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
        if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
        q.Set("fields", "*all")
        u := c.apiURL("/rest/api/2/search", q)
        return c.doJSON(ctx, http.MethodGet, u, nil)
    }
    // default to v3
    body := map[string]any{"jql": jql, "startAt": startAt, "maxResults": max}
    u := c.apiURL("/rest/api/3/search", url.Values{"fields": []string{"*all"}})
    return c.doJSON(ctx, http.MethodPost, u, body)
}

// SearchAll pages through a JQL query and flattens every issue into one raw
// record per issue: the fields object plus the top-level key under "key".
func (c *Client) SearchAll(ctx context.Context, jql string) ([]map[string]any, error) {
    size := c.pageSize
    if size <= 0 { size = 100 }
    var out []map[string]any
    start := 0
    for {
        page, err := c.Search(ctx, jql, start, size)
        if err != nil { return nil, err }
        issues, _ := page["issues"].([]any)
        for _, i0 := range issues {
            issue, _ := i0.(map[string]any)
            if issue == nil { continue }
            rec := map[string]any{}
            if fields, _ := issue["fields"].(map[string]any); fields != nil {
                for k, v := range fields { rec[k] = v }
            }
            if key, _ := issue["key"].(string); key != "" { rec["key"] = key }
            out = append(out, rec)
        }
        total := 0
        if t, ok := page["total"].(float64); ok { total = int(t) }
        start += len(issues)
        if len(issues) == 0 || start >= total { break }
    }
    c.log.Debug().Int("issues", len(out)).Str("jql", jql).Msg("jira search complete")
    return out, nil
}

// Fields lists all fields (for discovering custom field names)
func (c *Client) Fields(ctx context.Context) ([]map[string]any, error) {
    u := c.apiURL("/rest/api/2/field", nil)
    // Note: this endpoint returns an array; adapt doJSON by manual request
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return nil, err }
    if c.token != "" { req.Header.Set("Authorization", "Bearer "+c.token) }
    if c.user != "" && c.pass != "" { req.SetBasicAuth(c.user, c.pass) }
    if c.basic != "" { req.Header.Set("Authorization", "Basic "+c.basic) }
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(resp.Body)
        return nil, fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
    }
    var out []map[string]any
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, err }
    return out, nil
}
