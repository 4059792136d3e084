/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/adapters/jira"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/adapters/openai"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/adapters/telegram"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
    httpx "github.com/yellareddy-celigo/cs-dashboard-suite/internal/http"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/jobs"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/logger"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/repo"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // DB
    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()

    // Adapters
    jc := jira.NewClient(cfg, log)
    llm := openai.NewClient(cfg, log)
    tg := telegram.NewClient(cfg, log)

    // Services
    repository := repo.NewRepository(db, log)
    svc, err := services.New(cfg, log, repository, jc, llm, tg)
    if err != nil { log.Fatal().Err(err).Msg("service init failed") }

    // HTTP server (Gin)
    router := httpx.NewRouter(cfg, log, svc)

    // Register Telegram webhook only if PUBLIC_BASE_URL is HTTPS
    if cfg.TelegramWebhookSecret != "" && strings.HasPrefix(strings.ToLower(cfg.PublicBaseURL), "https://") {
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second); defer cancel()
            base := strings.TrimRight(cfg.PublicBaseURL, "/")
            webhookURL := base + "/telegram/webhook/" + cfg.TelegramWebhookSecret
            if err := tg.SetWebhook(ctx, webhookURL, cfg.TelegramWebhookSecret); err != nil {
                log.Error().Err(err).Str("url", webhookURL).Msg("telegram setWebhook failed")
            } else {
                log.Info().Str("url", webhookURL).Msg("telegram setWebhook ok")
            }
        }()
    }

    // Cron
    cron := jobs.NewCron(cfg, log, svc, repository)
    cron.Start()
    defer cron.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
