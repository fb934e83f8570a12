package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const gatewayTimeout = 15 * time.Second

// WebhookChatGateway posts messages to a chat platform's incoming-webhook
// endpoint (Slack-compatible payload shape).
type WebhookChatGateway struct {
	webhookURL string
	client     *http.Client
}

func NewWebhookChatGateway(webhookURL string) *WebhookChatGateway {
	return &WebhookChatGateway{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: gatewayTimeout},
	}
}

func (g *WebhookChatGateway) Post(ctx context.Context, msg ChatMessage) error {
	payload := map[string]any{"text": msg.Text}
	if msg.Channel != "" {
		payload["channel"] = msg.Channel
	}

	return postJSON(ctx, g.client, g.webhookURL, "", payload, nil)
}

// HTTPCRMGateway creates leads against a JSON lead-creation API.
type HTTPCRMGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPCRMGateway(baseURL, apiKey string) *HTTPCRMGateway {
	return &HTTPCRMGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: gatewayTimeout},
	}
}

func (g *HTTPCRMGateway) CreateLead(ctx context.Context, lead Lead) (string, error) {
	payload := map[string]any{
		"name":    lead.Name,
		"email":   lead.Email,
		"phone":   lead.Phone,
		"company": lead.Company,
		"source":  lead.Source,
	}

	var created struct {
		ID string `json:"id"`
	}

	if err := postJSON(ctx, g.client, g.baseURL+"/leads", g.apiKey, payload, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(snippet))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
