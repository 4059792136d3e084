/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/services"
)

type service interface {
    RunScheduledReport(ctx context.Context) error
    RunOnDemandReport(ctx context.Context, chatID int64, sinceDays int) error
    SendHelp(ctx context.Context, chatID int64) error
    GetLastRun(ctx context.Context) (any, error)
    LatestReport(ctx context.Context) (*services.Report, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) Report(c *gin.Context) {
    rep, err := h.svc.LatestReport(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "no successful run yet"})
        return
    }
    c.JSON(http.StatusOK, rep)
}

func (h *Handlers) RunNow(c *gin.Context) {
    // Run in background detached from the HTTP request to avoid context cancellation
    go func() { _ = h.svc.RunScheduledReport(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// parseReportCommand handles "/report", "/report 90d" and "/report 90".
func parseReportCommand(text string) (int, bool) {
    if !strings.HasPrefix(text, "/report") { return 0, false }
    arg := strings.TrimSpace(strings.TrimPrefix(text, "/report"))
    if arg == "" { return 0, true }
    arg = strings.TrimSuffix(arg, "d")
    days, err := strconv.Atoi(arg)
    if err != nil || days <= 0 { return 0, false }
    return days, true
}

func (h *Handlers) TelegramWebhook(c *gin.Context) {
    headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
    pathSecret := c.Param("secret")
    // Accept either header secret (preferred) or path secret
    if headerSecret != h.cfg.TelegramWebhookSecret && pathSecret != h.cfg.TelegramWebhookSecret {
        c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
        return
    }
    h.log.Info().Str("ip", c.ClientIP()).Str("ua", c.GetHeader("User-Agent")).Msg("telegram webhook received")

    // Parse minimal update payload for commands
    var upd struct {
        Message *struct {
            Chat struct {
                ID int64 `json:"id"`
            } `json:"chat"`
            Text string `json:"text"`
        } `json:"message"`
    }
    if err := c.ShouldBindJSON(&upd); err == nil && upd.Message != nil {
        chatID := upd.Message.Chat.ID
        text := strings.TrimSpace(upd.Message.Text)
        // accept only configured chats if provided
        allowed := len(h.cfg.TelegramChatIDs) == 0
        if !allowed {
            for _, id := range h.cfg.TelegramChatIDs { if id == chatID { allowed = true; break } }
        }
        if allowed {
            if days, ok := parseReportCommand(text); ok {
                go func() { _ = h.svc.RunOnDemandReport(context.Background(), chatID, days) }()
            } else if text == "/start" || text == "/help" {
                go func() { _ = h.svc.SendHelp(context.Background(), chatID) }()
            }
        }
    }

    c.JSON(http.StatusOK, gin.H{"ok": true})
}
