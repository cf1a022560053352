// Package extraction pulls billing period, total amount and kWh usage out
// of uploaded utility bill PDFs with a vision-capable language model.
package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"utility-billing/internal/observability/metrics"
)

// BillData is what a successful extraction yields. BillingPeriod keeps the
// model's "Mon DD, YYYY - Mon DD, YYYY" form verbatim.
type BillData struct {
	BillingPeriod string  `json:"billingPeriod"`
	TotalAmount   float64 `json:"totalAmount"`
	TotalKwh      float64 `json:"totalKwh"`
}

const (
	defaultBaseURL    = "https://api.anthropic.com/v1/messages"
	defaultModel      = "claude-3-5-haiku-latest"
	defaultMaxRetries = 2
	defaultRetryDelay = time.Second
	apiVersion        = "2023-06-01"
	maxTokens         = 256
)

// Client calls the model provider's messages API.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the extraction model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryDelay sets the pause between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient constructs an extraction client. An empty apiKey is allowed at
// construction; ExtractBill fails with ErrAPIKeyMissing when called.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractBill sends the PDF to the model and parses its answer. Transient
// failures are retried; auth and document errors are returned immediately
// since retrying cannot change them.
func (c *Client) ExtractBill(ctx context.Context, pdf []byte) (BillData, error) {
	if c.apiKey == "" {
		return BillData{}, ErrAPIKeyMissing
	}

	encoded := base64.StdEncoding.EncodeToString(pdf)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		start := time.Now()
		data, err := c.request(ctx, encoded)
		if err == nil {
			metrics.ObserveExtraction(metrics.ResultSuccess, time.Since(start))
			return data, nil
		}
		metrics.ObserveExtraction(metrics.ResultError, time.Since(start))
		if IsTerminal(err) {
			return BillData{}, err
		}
		lastErr = err
		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return BillData{}, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return BillData{}, lastErr
}

func (c *Client) request(ctx context.Context, pdfBase64 string) (BillData, error) {
	body := map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{
						"type": "document",
						"source": map[string]any{
							"type":       "base64",
							"media_type": "application/pdf",
							"data":       pdfBase64,
						},
					},
					map[string]any{
						"type": "text",
						"text": extractionPrompt,
					},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return BillData{}, fmt.Errorf("extraction: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return BillData{}, fmt.Errorf("extraction: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return BillData{}, fmt.Errorf("extraction: call model: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return BillData{}, fmt.Errorf("extraction: decode response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return BillData{}, ErrInvalidAPIKey
	}
	if resp.StatusCode >= 300 {
		if apiResp.Error.Message != "" {
			return BillData{}, fmt.Errorf("extraction: api error: %s", apiResp.Error.Message)
		}
		return BillData{}, fmt.Errorf("extraction: api error: http %d", resp.StatusCode)
	}
	if len(apiResp.Content) == 0 {
		return BillData{}, ErrUnreadableResponse
	}
	return parseModelText(apiResp.Content[0].Text)
}

// parseModelText recovers the JSON object from the model's text and maps
// structured error answers onto DocumentError.
func parseModelText(text string) (BillData, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return BillData{}, ErrUnreadableResponse
	}

	var parsed struct {
		Error         string         `json:"error"`
		Detected      string         `json:"detected"`
		Found         map[string]any `json:"found"`
		BillingPeriod string         `json:"billingPeriod"`
		TotalAmount   any            `json:"totalAmount"`
		TotalKwh      any            `json:"totalKwh"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return BillData{}, ErrUnreadableResponse
	}

	switch parsed.Error {
	case KindWrongDocument, "not_a_utility_bill":
		return BillData{}, &DocumentError{Kind: KindWrongDocument, Detected: parsed.Detected}
	case KindMissingData:
		return BillData{}, &DocumentError{Kind: KindMissingData, Missing: missingFields(parsed.Found)}
	}

	amount, okAmount := toFloat(parsed.TotalAmount)
	kwh, okKwh := toFloat(parsed.TotalKwh)
	if parsed.BillingPeriod == "" || !okAmount || !okKwh {
		missing := make([]string, 0, 3)
		if parsed.BillingPeriod == "" {
			missing = append(missing, "billing period")
		}
		if !okAmount {
			missing = append(missing, "total amount")
		}
		if !okKwh {
			missing = append(missing, "kWh usage")
		}
		return BillData{}, &DocumentError{Kind: KindMissingData, Missing: missing}
	}

	return BillData{
		BillingPeriod: parsed.BillingPeriod,
		TotalAmount:   amount,
		TotalKwh:      kwh,
	}, nil
}

func missingFields(found map[string]any) []string {
	missing := make([]string, 0, 3)
	for _, field := range []struct{ key, label string }{
		{"billingPeriod", "billing period"},
		{"totalAmount", "total amount"},
		{"totalKwh", "kWh usage"},
	} {
		value, ok := found[field.key]
		if !ok || value == nil || value == "" {
			missing = append(missing, field.label)
		}
	}
	return missing
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
