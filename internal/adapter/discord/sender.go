// Package discord implements the delivery port against the Discord
// REST API, with an incoming-webhook fallback for tokenless setups.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/planloop/planloop/internal/config"
	"github.com/planloop/planloop/internal/port/delivery"
)

const providerName = "discord"

// Sender posts messages to channels with a bot token. When no token is
// configured it falls back to the webhook URL, which ignores the
// channel addressing.
type Sender struct {
	botToken   string
	webhookURL string
	apiBase    string
	httpClient *http.Client
}

func NewSender(cfg config.Discord) *Sender {
	return &Sender{
		botToken:   cfg.BotToken,
		webhookURL: cfg.WebhookURL,
		apiBase:    cfg.APIBase,
		httpClient: http.DefaultClient,
	}
}

func (s *Sender) Name() string { return providerName }

// channelMessage is the Discord create-message payload.
type channelMessage struct {
	Content string `json:"content"`
}

func (s *Sender) Send(ctx context.Context, msg delivery.Outbound) error {
	switch {
	case s.botToken != "" && msg.ChannelID != "":
		return s.sendChannel(ctx, msg)
	case s.webhookURL != "":
		return s.sendWebhook(ctx, msg)
	default:
		return delivery.ErrNotConfigured
	}
}

func (s *Sender) sendChannel(ctx context.Context, msg delivery.Outbound) error {
	url := fmt.Sprintf("%s/channels/%s/messages", s.apiBase, msg.ChannelID)
	body, err := json.Marshal(channelMessage{Content: msg.Content})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+s.botToken)

	return s.do(req)
}

func (s *Sender) sendWebhook(ctx context.Context, msg delivery.Outbound) error {
	body, err := json.Marshal(channelMessage{Content: msg.Content})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req)
}

func (s *Sender) do(req *http.Request) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord returns 200 for channel messages, 204 for webhooks.
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
