// Package notify announces staged charges to an operator channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Event describes a charge that was just staged on the portal.
type Event struct {
	RunID                 string
	LeaseID               string
	PropertyName          string
	Period                string
	Amount                string
	ChargeID              string
	RequiresManualAccount bool
	Warnings              []string
}

// Notifier delivers staged-charge events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// WebhookNotifier posts events to a webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends the event to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatEvent(event)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("webhook notifier: non-2xx")
	}
	return nil
}

func formatEvent(event Event) string {
	var b strings.Builder
	b.WriteString("[Utility Charge Staged]\n")
	if event.PropertyName != "" {
		fmt.Fprintf(&b, "Property: %s\n", event.PropertyName)
	}
	if event.Period != "" {
		fmt.Fprintf(&b, "Period: %s\n", event.Period)
	}
	if event.Amount != "" {
		fmt.Fprintf(&b, "Amount: $%s\n", event.Amount)
	}
	if event.ChargeID != "" {
		fmt.Fprintf(&b, "Charge: %s\n", event.ChargeID)
	}
	if event.RequiresManualAccount {
		b.WriteString("Action needed: pick a deposit account before submitting.\n")
	}
	for _, warning := range event.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", warning)
	}
	return strings.TrimSpace(b.String())
}
