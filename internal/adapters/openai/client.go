package openai

import (
    "context"
    "errors"
    "strings"

    "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/rs/zerolog"
    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/config"
)

type Client struct {
    api     openai.Client
    model   string
    enabled bool
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        api:     openai.NewClient(option.WithAPIKey(cfg.OpenAIKey), option.WithRequestTimeout(cfg.OpenAITimeout)),
        model:   cfg.OpenAIModel,
        enabled: strings.TrimSpace(cfg.OpenAIKey) != "",
        log:     log,
    }
}

func (c *Client) Enabled() bool { return c.enabled }

// Summarize turns a rendered analysis digest into a short narrative for the
// top of the report. The digest itself never depends on this.
func (c *Client) Summarize(ctx context.Context, digest string) (string, error) {
    if !c.enabled { return "", errors.New("openai: missing key") }
    resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
        Model: openai.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage("You are a customer-success analyst. Given monthly issue breakdowns by integration app, resolution, root cause and holiday period, write a concise narrative: the biggest sources of issues, notable trends and anomalies, and one or two suggested actions. Plain text, a few sentences."),
            openai.UserMessage(digest),
        },
    })
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}
