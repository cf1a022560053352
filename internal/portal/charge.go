package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

// MaxAttachments caps how many supporting files a charge draft carries.
const MaxAttachments = 3

// Attachment is one supporting file staged with a charge.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Content   []byte `json:"content"`
}

// ChargeDraft is everything needed to stage a one-time charge on a lease.
// Staging fills the portal's draft; a person reviews the deposit account
// and submits it in the portal, never this client.
type ChargeDraft struct {
	LeaseID       string
	Category      string
	Description   string
	Amount        string
	DueDate       string
	DestinationID string
	Attachments   []Attachment
}

// StageCharge posts the draft to the portal's charge creation endpoint and
// returns the draft's charge id.
func (c *Client) StageCharge(ctx context.Context, draft ChargeDraft) (string, error) {
	if draft.LeaseID == "" {
		return "", errors.New("portal: charge draft needs a lease id")
	}
	if len(draft.Attachments) > MaxAttachments {
		return "", fmt.Errorf("portal: at most %d attachments per charge", MaxAttachments)
	}
	if draft.Category == "" {
		draft.Category = "UTILITY_CHARGE"
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"charge_type":    "ONE_TIME",
		"category":       draft.Category,
		"description":    draft.Description,
		"amount":         draft.Amount,
		"end_date":       draft.DueDate,
		"destination_id": draft.DestinationID,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return "", fmt.Errorf("portal: write charge field: %w", err)
		}
	}
	for _, att := range draft.Attachments {
		part, err := form.CreateFormFile("attachments", att.Filename)
		if err != nil {
			return "", fmt.Errorf("portal: attach %s: %w", att.Filename, err)
		}
		if _, err := part.Write(att.Content); err != nil {
			return "", fmt.Errorf("portal: attach %s: %w", att.Filename, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("portal: finish charge form: %w", err)
	}

	url := c.baseURL + RouteChargeCreate + draft.LeaseID + "/draft"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("portal: build charge request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("portal: stage charge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("portal: stage charge: http %d", resp.StatusCode)
	}
	var out struct {
		ChargeID string `json:"chargeId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("portal: decode charge response: %w", err)
	}
	return out.ChargeID, nil
}
