package telegram

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
    t.Helper()
    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)
    return &Client{token: "test-token", apiBase: srv.URL, http: srv.Client(), log: zerolog.Nop()}
}

func TestSendMarkdownV2SetsParseMode(t *testing.T) {
    var got map[string]any
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        if !strings.HasSuffix(r.URL.Path, "/sendMessage") { t.Fatalf("unexpected path %s", r.URL.Path) }
        if err := json.NewDecoder(r.Body).Decode(&got); err != nil { t.Fatalf("decode: %v", err) }
        w.WriteHeader(http.StatusOK)
    })
    if err := c.SendMarkdownV2(context.Background(), 42, "*digest*"); err != nil {
        t.Fatalf("SendMarkdownV2: %v", err)
    }
    if got["parse_mode"] != "MarkdownV2" { t.Fatalf("parse_mode = %v", got["parse_mode"]) }
    if got["chat_id"] != float64(42) { t.Fatalf("chat_id = %v", got["chat_id"]) }
}

func TestSendMessagePlainOmitsParseMode(t *testing.T) {
    var got map[string]any
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        if err := json.NewDecoder(r.Body).Decode(&got); err != nil { t.Fatalf("decode: %v", err) }
        w.WriteHeader(http.StatusOK)
    })
    if err := c.SendMessagePlain(context.Background(), 42, "Report failed: boom"); err != nil {
        t.Fatalf("SendMessagePlain: %v", err)
    }
    if _, ok := got["parse_mode"]; ok { t.Fatalf("plain message carried parse_mode %v", got["parse_mode"]) }
}

func TestSendSurfacesAPIError(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusBadRequest)
        w.Write([]byte(`{"ok":false,"description":"can't parse entities"}`))
    })
    err := c.SendMarkdownV2(context.Background(), 42, "broken _markup")
    if err == nil { t.Fatal("expected error on 400") }
    if !strings.Contains(err.Error(), "status=400") || !strings.Contains(err.Error(), "can't parse entities") {
        t.Fatalf("error lacks API detail: %v", err)
    }
}

func TestSendRejectsMissingChat(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        t.Fatal("no request expected")
    })
    if err := c.SendMarkdownV2(context.Background(), 0, "x"); err == nil {
        t.Fatal("expected error for chat id 0")
    }
}

func TestResolveUsername(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        if !strings.HasSuffix(r.URL.Path, "/getChat") { t.Fatalf("unexpected path %s", r.URL.Path) }
        w.Write([]byte(`{"ok":true,"result":{"id":987654}}`))
    })
    id, err := c.ResolveUsername(context.Background(), "@csteam")
    if err != nil { t.Fatalf("ResolveUsername: %v", err) }
    if id != 987654 { t.Fatalf("id = %d", id) }
}
