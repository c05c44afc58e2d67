package chat

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

// SystemPrompt is sent with every completion request.
const SystemPrompt = "You are the PracticeHub assistant, a helpful support agent for a medical " +
	"practice-management and billing dashboard. Answer questions about registering patients, " +
	"scheduling appointments, insurance, billing, documents and messaging. Keep answers short. " +
	"Never ask for or repeat protected health information."

// Completer answers a prompt with generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// CompletionClient calls an OpenAI-compatible chat completions endpoint.
type CompletionClient struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

func NewCompletionClient(url, apiKey, model string) *CompletionClient {
	return &CompletionClient{url: url, apiKey: apiKey, model: model, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned HTTP %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion API returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
