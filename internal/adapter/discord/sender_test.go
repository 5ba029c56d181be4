package discord_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/planloop/planloop/internal/adapter/discord"
	"github.com/planloop/planloop/internal/config"
	"github.com/planloop/planloop/internal/port/delivery"
)

func TestSendChannelMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := discord.NewSender(config.Discord{BotToken: "tok", APIBase: srv.URL})
	err := s.Send(context.Background(), delivery.Outbound{
		MessageID: "m1", ChannelID: "chan-1", Content: "hello",
	})
	if err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if gotPath != "/channels/chan-1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bot tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody["content"] != "hello" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSendWebhookFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := discord.NewSender(config.Discord{WebhookURL: srv.URL})
	err := s.Send(context.Background(), delivery.Outbound{ChannelID: "chan-1", Content: "hi"})
	if err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if !called {
		t.Fatal("webhook was not called")
	}
}

func TestSendNotConfigured(t *testing.T) {
	s := discord.NewSender(config.Discord{})
	err := s.Send(context.Background(), delivery.Outbound{ChannelID: "c", Content: "x"})
	if !errors.Is(err, delivery.ErrNotConfigured) {
		t.Fatalf("Send() = %v, want ErrNotConfigured", err)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Missing Access"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	s := discord.NewSender(config.Discord{BotToken: "tok", APIBase: srv.URL})
	err := s.Send(context.Background(), delivery.Outbound{ChannelID: "chan-1", Content: "x"})
	if err == nil {
		t.Fatal("Send() = nil, want error on 403")
	}
}
