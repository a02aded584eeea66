package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// openaiClient talks to OpenAI-compatible chat completion endpoints.
type openaiClient struct {
	cfg  Config
	http *http.Client
	base string
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	base := "https://api.openai.com/v1"
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &openaiClient{
		cfg:  cfg,
		base: base,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *openaiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	oReq := openaiRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   pick(req.MaxTokens, c.cfg.MaxTokens),
		Temperature: pickFloat(req.Temperature, c.cfg.Temperature),
	}

	body, err := json.Marshal(oReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var oResp openaiResponse
	decodeErr := json.Unmarshal(respBody, &oResp)

	if httpResp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if decodeErr == nil && oResp.Error != nil && oResp.Error.Message != "" {
			msg = oResp.Error.Message
		}
		return nil, &APIError{Provider: OpenAI, StatusCode: httpResp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if len(oResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &Response{
		Content:   strings.TrimSpace(oResp.Choices[0].Message.Content),
		TokensIn:  oResp.Usage.PromptTokens,
		TokensOut: oResp.Usage.CompletionTokens,
		Model:     oResp.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func (c *openaiClient) Provider() Provider { return OpenAI }

func pick(preferred, fallback int) int {
	if preferred > 0 {
		return preferred
	}
	return fallback
}

func pickFloat(preferred, fallback float64) float64 {
	if preferred > 0 {
		return preferred
	}
	return fallback
}
