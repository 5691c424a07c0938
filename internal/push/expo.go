package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DefaultGatewayURL is the Expo push HTTP endpoint.
const DefaultGatewayURL = "https://exp.host/--/api/v2/push/send"

// Message is one push message in the gateway wire format.
type Message struct {
	To        string         `json:"to"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Sound     string         `json:"sound"`
	Priority  string         `json:"priority"`
	ChannelID string         `json:"channelId"`
}

// NewMessage builds a message with the delivery settings the mobile app
// expects: default sound, high priority, default Android channel.
func NewMessage(to, title, body string, data map[string]any) Message {
	return Message{
		To:        to,
		Title:     title,
		Body:      body,
		Data:      data,
		Sound:     "default",
		Priority:  "high",
		ChannelID: "default",
	}
}

// Ticket is the gateway's per-message acceptance receipt.
type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Ok reports whether the gateway accepted the message.
func (t Ticket) Ok() bool {
	return t.Status == "ok"
}

type ticketResponse struct {
	Data []Ticket `json:"data"`
}

// Doer abstracts the HTTP client so the gateway works with both the plain
// retrying client and the circuit-breaker wrapper.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// GatewayConfig holds push gateway settings.
type GatewayConfig struct {
	URL         string
	AccessToken string
}

// Gateway sends batches of push messages over the Expo HTTP contract.
type Gateway struct {
	http   Doer
	cfg    GatewayConfig
	logger *slog.Logger
}

// NewGateway creates a push gateway client.
func NewGateway(client Doer, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.URL == "" {
		cfg.URL = DefaultGatewayURL
	}
	return &Gateway{http: client, cfg: cfg, logger: logger}
}

// Send posts one batch of messages and returns the per-message tickets.
func (g *Gateway) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)
	}

	resp, err := g.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, string(body))
	}

	var tr ticketResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode push tickets: %w", err)
	}

	for _, ticket := range tr.Data {
		if !ticket.Ok() {
			g.logger.WarnContext(ctx, "push message rejected",
				slog.String("status", ticket.Status),
				slog.String("message", ticket.Message),
			)
		}
	}

	return tr.Data, nil
}
