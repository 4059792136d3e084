/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
)

const defaultAPIBase = "https://api.telegram.org"

// Client delivers report digests to Telegram chats. Digests are rendered in
// MarkdownV2 upstream; the plain variant exists for error notices that must
// never fail on markup.
type Client struct {
    token   string
    apiBase string
    http    *http.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{ token: cfg.TelegramToken, apiBase: defaultAPIBase, http: &http.Client{ Timeout: 10 * time.Second }, log: log }
}

// call posts one Bot API method and decodes nothing; the caller gets the raw
// response body only inside the error on non-2xx.
func (c *Client) call(ctx context.Context, method string, payload map[string]any) (*http.Response, error) {
    b, _ := json.Marshal(payload)
    url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
    req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    if resp.StatusCode >= 300 {
        body, _ := io.ReadAll(resp.Body)
        resp.Body.Close()
        return nil, fmt.Errorf("telegram %s status=%d body=%s", method, resp.StatusCode, string(body))
    }
    return resp, nil
}

func (c *Client) send(ctx context.Context, chatID int64, text, parseMode string) error {
    if c.token == "" || chatID == 0 { return fmt.Errorf("telegram: missing token or chat id") }
    payload := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
    if parseMode != "" { payload["parse_mode"] = parseMode }
    resp, err := c.call(ctx, "sendMessage", payload)
    if err != nil { return err }
    resp.Body.Close()
    return nil
}

// SendMessagePlain sends without parse_mode; used for failure notices where
// the text may contain arbitrary error strings.
func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, chatID, text, "")
}

// SendMarkdownV2 sends one digest chunk using MarkdownV2 parse mode.
func (c *Client) SendMarkdownV2(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, chatID, text, "MarkdownV2")
}

// ResolveUsername maps an @username to its numeric chat id via getChat, so
// deployments can configure TELEGRAM_CHAT_USERNAMES instead of raw ids.
func (c *Client) ResolveUsername(ctx context.Context, username string) (int64, error) {
    if c.token == "" || username == "" { return 0, fmt.Errorf("telegram: missing token or username") }
    resp, err := c.call(ctx, "getChat", map[string]any{"chat_id": username})
    if err != nil { return 0, err }
    defer resp.Body.Close()
    var r struct{ OK bool `json:"ok"`; Result struct{ ID int64 `json:"id"` } `json:"result"` }
    if err := json.NewDecoder(resp.Body).Decode(&r); err != nil { return 0, err }
    if !r.OK || r.Result.ID == 0 { return 0, fmt.Errorf("telegram: invalid getChat response") }
    return r.Result.ID, nil
}

// SetWebhook registers the webhook URL and secret with Telegram.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string, secretToken string) error {
    if c.token == "" || webhookURL == "" || secretToken == "" { return fmt.Errorf("telegram: missing token, url or secret") }
    resp, err := c.call(ctx, "setWebhook", map[string]any{
        "url":                  webhookURL,
        "secret_token":         secretToken,
        "drop_pending_updates": true,
        "allowed_updates":      []string{"message"},
    })
    if err != nil { return err }
    resp.Body.Close()
    return nil
}
