/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "strings"
    "sync"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/pipeline"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/repo"
)

type JiraClient interface {
    SearchAll(ctx context.Context, jql string) ([]map[string]any, error)
    Fields(ctx context.Context) ([]map[string]any, error)
}

type LLM interface {
    Enabled() bool
    Summarize(ctx context.Context, digest string) (string, error)
}

type Notifier interface {
    SendMessagePlain(ctx context.Context, chatID int64, text string) error
    SendMarkdownV2(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg        config.Config
    log        zerolog.Logger
    repo       *repo.Repository
    jira       JiraClient
    llm        LLM
    tg         Notifier
    pipe       *pipeline.Pipeline
    fieldOnce  sync.Once
    fieldNames map[string]string // customfield id -> display name, read-only after fieldOnce
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, jira JiraClient, llm LLM, tg Notifier) (*Service, error) {
    acfg, err := pipeline.LoadAnalysisConfig(cfg.AnalysisConfigFile)
    if err != nil { return nil, err }
    pipe, err := pipeline.New(acfg, log)
    if err != nil { return nil, err }
    return &Service{cfg: cfg, log: log, repo: r, jira: jira, llm: llm, tg: tg, pipe: pipe}, nil
}

// RunAnalysis fetches the issue window from Jira, runs the pipeline and
// persists the run. Partial record failures are recorded on the run row;
// only systemic failures return an error.
func (s *Service) RunAnalysis(ctx context.Context, source string, sinceDays int) (*pipeline.Result, error) {
    if sinceDays <= 0 { sinceDays = s.cfg.AnalysisSinceDays }
    jql := s.cfg.JiraDefaultJQL
    if sinceDays > 0 {
        projects := strings.Join(s.cfg.JiraProjects, ",")
        jql = fmt.Sprintf("project in (%s) AND created >= -%dd ORDER BY created ASC", projects, sinceDays)
    }

    runID, err := s.repo.StartRun(ctx, source)
    if err != nil { s.log.Error().Err(err).Msg("start run failed") }
    var res *pipeline.Result
    var runErr error
    defer func() {
        if runID == 0 { return }
        total, accepted, skipped := 0, 0, 0
        if res != nil {
            total, accepted, skipped = res.Report.Total, res.Report.Accepted, res.Report.Skipped
        }
        errStr := ""
        if runErr != nil { errStr = runErr.Error() }
        if err := s.repo.FinishRun(ctx, runID, total, accepted, skipped, runErr == nil, errStr); err != nil {
            s.log.Error().Err(err).Int64("run", runID).Msg("finish run failed")
        }
    }()

    records, err := s.jira.SearchAll(ctx, jql)
    if err != nil { runErr = fmt.Errorf("jira fetch: %w", err); return nil, runErr }
    s.renameCustomFields(ctx, records)
    res, runErr = s.pipe.Run(records)
    if runErr != nil { return nil, runErr }

    if err := s.repo.UpsertIssues(ctx, runID, res.Issues); err != nil {
        s.log.Error().Err(err).Msg("persist issues failed")
    }
    if err := s.repo.SaveTables(ctx, runID, res.Tables); err != nil {
        s.log.Error().Err(err).Msg("persist tables failed")
    }
    if err := s.repo.SaveTrends(ctx, runID, res.Trends); err != nil {
        s.log.Error().Err(err).Msg("persist trends failed")
    }
    for _, f := range res.Report.Failures {
        s.log.Warn().Int("index", f.Index).Str("id", f.ID).Str("reason", f.Reason).Msg("record skipped")
    }
    return res, nil
}

// renameCustomFields replaces customfield_* keys with their Jira display names
// so configured field aliases ("Custom field (Root Cause)" and friends) can see
// them. Discovery failures degrade to the raw ids. Runs can overlap (cron plus
// on-demand HTTP paths), so discovery happens exactly once.
func (s *Service) renameCustomFields(ctx context.Context, records []map[string]any) {
    s.fieldOnce.Do(func() {
        s.fieldNames = map[string]string{}
        fields, err := s.jira.Fields(ctx)
        if err != nil {
            s.log.Warn().Err(err).Msg("jira field discovery failed, keeping raw field ids")
            return
        }
        for _, f := range fields {
            id, _ := f["id"].(string)
            name, _ := f["name"].(string)
            if strings.HasPrefix(id, "customfield_") && name != "" { s.fieldNames[id] = name }
        }
        s.log.Info().Int("custom_fields", len(s.fieldNames)).Msg("jira custom fields discovered")
    })
    if len(s.fieldNames) == 0 { return }
    for _, rec := range records {
        for id, name := range s.fieldNames {
            if v, ok := rec[id]; ok {
                if _, taken := rec[name]; !taken { rec[name] = v }
                delete(rec, id)
            }
        }
    }
}

// RunScheduledReport is the cron entrypoint: run the analysis, render the
// digest and deliver it to the configured chats.
func (s *Service) RunScheduledReport(ctx context.Context) error {
    s.log.Info().Msg("scheduled report: start")
    res, err := s.RunAnalysis(ctx, "cron", 0)
    if err != nil {
        s.log.Error().Err(err).Msg("scheduled report: analysis failed")
        return err
    }
    digest := s.renderDigest(res)
    if s.llm != nil && s.llm.Enabled() {
        llmCtx, cancel := context.WithTimeout(ctx, s.cfg.OpenAITimeout)
        narrative, err := s.llm.Summarize(llmCtx, digest)
        cancel()
        if err != nil {
            s.log.Warn().Err(err).Msg("narrative summary failed, sending digest without it")
        } else if narrative != "" {
            digest = "_" + esc(strings.TrimSpace(narrative)) + "_\n\n" + digest
        }
    }
    s.deliver(ctx, digest)
    s.log.Info().Msg("scheduled report: done")
    return nil
}

// RunOnDemandReport generates a report for the past N days and sends it to the requester chat.
func (s *Service) RunOnDemandReport(ctx context.Context, chatID int64, sinceDays int) error {
    if chatID == 0 { return nil }
    res, err := s.RunAnalysis(ctx, "on-demand", sinceDays)
    if err != nil {
        _ = s.tg.SendMessagePlain(ctx, chatID, "Report failed: "+err.Error())
        return err
    }
    for _, part := range chunkText(s.renderDigest(res), 3800) {
        if err := s.tg.SendMarkdownV2(ctx, chatID, part); err != nil {
            s.log.Error().Err(err).Int64("chat", chatID).Msg("telegram send failed")
            return err
        }
    }
    return nil
}

// SendHelp replies with bot capabilities and commands.
func (s *Service) SendHelp(ctx context.Context, chatID int64) error {
    if chatID == 0 { return nil }
    help := esc("CS Dashboard Bot") + "\n" +
        esc("Monthly issue analytics: integration apps, resolutions, root causes, holiday-season load.") + "\n\n" +
        esc("Commands:") + "\n" +
        esc("- /report 90d — On-demand report for the last 90 days") + "\n" +
        esc("- /report 180d — On-demand report for the last 180 days") + "\n" +
        esc("Setup: Admin configures Jira, Telegram chat IDs, and schedule.")
    return s.tg.SendMarkdownV2(ctx, chatID, help)
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
    return s.repo.GetLastRun(ctx)
}

// Report is the stored shape of the last successful run, served over HTTP.
type Report struct {
    RunID  int64                               `json:"run_id"`
    Tables map[string]*domain.AggregationTable `json:"tables"`
    Trends []repo.StoredTrend                  `json:"trends"`
}

func (s *Service) LatestReport(ctx context.Context) (*Report, error) {
    runID, err := s.repo.GetLastSuccessfulRunID(ctx)
    if err != nil { return nil, err }
    tables, err := s.repo.LoadTables(ctx, runID)
    if err != nil { return nil, err }
    trends, err := s.repo.LoadTrends(ctx, runID)
    if err != nil { return nil, err }
    return &Report{RunID: runID, Tables: tables, Trends: trends}, nil
}

func (s *Service) deliver(ctx context.Context, digest string) {
    parts := chunkText(digest, 3800)
    for _, chat := range s.cfg.TelegramChatIDs {
        for _, p := range parts {
            if err := s.tg.SendMarkdownV2(ctx, chat, p); err != nil {
                s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
            }
        }
    }
    // If no numeric IDs, try usernames via resolver if available
    type usernameResolver interface{ ResolveUsername(ctx context.Context, username string) (int64, error) }
    if len(s.cfg.TelegramChatIDs) == 0 && len(s.cfg.TelegramChatUsernames) > 0 {
        if r, ok := s.tg.(usernameResolver); ok {
            for _, u := range s.cfg.TelegramChatUsernames {
                id, err := r.ResolveUsername(ctx, u)
                if err != nil { s.log.Error().Err(err).Str("username", u).Msg("resolve username failed"); continue }
                for _, p := range parts {
                    if err := s.tg.SendMarkdownV2(ctx, id, p); err != nil {
                        s.log.Error().Err(err).Str("username", u).Int64("chat", id).Msg("telegram send failed")
                    }
                }
            }
        } else {
            s.log.Error().Msg("telegram client does not support username resolution; set TELEGRAM_CHAT_IDS")
        }
    }
}

// renderDigest builds the MarkdownV2 report body from one pipeline result.
func (s *Service) renderDigest(res *pipeline.Result) string {
    b := &strings.Builder{}
    fmt.Fprintf(b, "*CS Dashboard*\n")
    fmt.Fprintf(b, "Issue analytics report\n\n")
    fmt.Fprintf(b, "*Records:* %d analyzed, %d skipped\n\n", res.Report.Accepted, res.Report.Skipped)

    if res.TopApps != nil && len(res.TopApps.Rows) > 0 {
        fmt.Fprintf(b, "*Top integration apps:*\n")
        for i, row := range res.TopApps.Rows {
            fmt.Fprintf(b, "%d\\. %s — %d \\(%s\\)\n", i+1, esc(row.Value), row.Total, esc(fmt.Sprintf("%.0f%%", row.Percent*100)))
        }
        b.WriteString("\n")
    }
    if t, ok := res.Tables[pipeline.DimResolution]; ok && len(t.Rows) > 0 {
        fmt.Fprintf(b, "*Resolutions:*\n")
        for i, row := range t.Rows {
            if i >= 5 { break }
            fmt.Fprintf(b, "• %s: %d \\(%s\\)\n", esc(row.Value), row.Total, esc(fmt.Sprintf("%.0f%%", row.Percent*100)))
        }
        b.WriteString("\n")
    }
    if t, ok := res.Tables[pipeline.DimHolidayPeriod]; ok && len(t.Rows) > 0 {
        fmt.Fprintf(b, "*Holiday periods:*\n")
        for _, row := range t.Rows {
            fmt.Fprintf(b, "• %s: %d\n", esc(row.Value), row.Total)
        }
        b.WriteString("\n")
    }
    moving, anomalous := pickNotableSeries(res.Trends[pipeline.DimIntegrationApp])
    if len(moving) > 0 {
        fmt.Fprintf(b, "*Trends:*\n")
        for _, t := range moving {
            fmt.Fprintf(b, "• %s: %s\n", esc(t.Value), esc(string(t.Label)))
        }
        b.WriteString("\n")
    }
    if len(anomalous) > 0 {
        fmt.Fprintf(b, "*Anomalous months:*\n")
        for _, t := range anomalous {
            months := make([]string, 0, len(t.AnomalousMonths))
            for _, m := range t.AnomalousMonths { months = append(months, m.String()) }
            fmt.Fprintf(b, "• %s: %s\n", esc(t.Value), esc(strings.Join(months, ", ")))
        }
    }
    return b.String()
}

// pickNotableSeries keeps non-stable series and series carrying anomalies,
// capped so the digest stays within a couple of Telegram messages.
func pickNotableSeries(series []domain.TrendSeries) (moving, anomalous []domain.TrendSeries) {
    for _, t := range series {
        if t.Label != domain.TrendStable && len(moving) < 8 { moving = append(moving, t) }
        if len(t.AnomalousMonths) > 0 && len(anomalous) < 8 { anomalous = append(anomalous, t) }
    }
    return moving, anomalous
}

// esc escapes MarkdownV2 special characters.
func esc(in string) string {
    repl := []string{"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!"}
    for i := 0; i < len(repl); i += 2 { in = strings.ReplaceAll(in, repl[i], repl[i+1]) }
    return in
}

// chunkText splits text into chunks of up to max runes, attempting to break on line boundaries.
func chunkText(s string, max int) []string {
    if max <= 0 { return []string{s} }
    var chunks []string
    lines := strings.Split(s, "\n")
    cur := ""
    curlen := 0
    for _, ln := range lines {
        rl := len([]rune(ln))
        // If a single line exceeds max, hard-split the line
        if rl > max {
            // flush current first
            if curlen > 0 { chunks = append(chunks, cur); cur = ""; curlen = 0 }
            r := []rune(ln)
            for i := 0; i < rl; i += max {
                j := i + max
                if j > rl { j = rl }
                chunks = append(chunks, string(r[i:j]))
            }
            continue
        }
        // account for newline when appending to non-empty cur
        extra := rl
        if curlen > 0 { extra += 1 }
        if curlen+extra > max {
            chunks = append(chunks, cur)
            cur = ln
            curlen = rl
        } else {
            if curlen == 0 { cur = ln; curlen = rl } else { cur += "\n" + ln; curlen += extra }
        }
    }
    if curlen > 0 { chunks = append(chunks, cur) }
    if len(chunks) == 0 { chunks = []string{""} }
    return chunks
}
