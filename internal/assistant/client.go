package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/helpdeskhq/helpdesk-service/internal/config"
)

// SystemPrompt frames the assistant as a help-desk troubleshooter.
const SystemPrompt = `You are an IT support assistant for a helpdesk. Be concise, actionable, and friendly.
You can help with software, hardware, account, and network issues.
When the user's problem sounds serious or blocked, suggest opening a support ticket.
If they ask for exact company policy and you are unsure, say so and provide general best-practices.
Keep answers in 3-8 bullet points when giving steps.`

// Message is one turn of an assistant conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Client calls an external generateContent-style text generation API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient builds the assistant client.
func NewClient(cfg config.AssistantConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends the conversation to the model and returns the reply
// text. The assistant never touches ticket state; failures surface as
// plain errors for the caller to map.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("assistant api key not configured")
	}

	req := generateRequest{
		SystemInstruction: &generateContent{Parts: []generatePart{{Text: SystemPrompt}}},
	}
	for _, m := range messages {
		role := m.Role
		if role != "user" && role != "model" {
			role = "user"
		}
		req.Contents = append(req.Contents, generateContent{
			Role:  role,
			Parts: []generatePart{{Text: m.Text}},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("assistant backend returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("assistant backend returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
