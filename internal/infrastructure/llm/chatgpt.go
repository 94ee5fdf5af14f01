package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AutoBlog/internal/config"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
)

const (
	topP             = 0.9
	frequencyPenalty = 0.3
	presencePenalty  = 0.3
)

// ErrMisconfigured is returned when the endpoint, model or key is missing.
var ErrMisconfigured = errors.New("chatgpt client misconfigured")

// ChatGPTClient implements ports.Generator backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	defaults     ports.GenerateOptions
	httpClient   *http.Client
	logger       *slog.Logger
}

var _ ports.Generator = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.LLMConfig, logger *slog.Logger) *ChatGPTClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	defaults := ports.GenerateOptions{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = 2000
	}
	if defaults.Temperature <= 0 {
		defaults.Temperature = 0.7
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		defaults:     defaults,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.With("component", "llm"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends prompt as the user message and returns the first choice.
// Failures are wrapped in *retry.Error with the kind derived from the HTTP
// status; an empty completion is KindUnknown.
func (c *ChatGPTClient) Generate(ctx context.Context, prompt, topic string, opts ...ports.GenerateOption) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", retry.NewError(retry.KindAuth, ErrMisconfigured)
	}

	o := ports.ApplyGenerateOptions(c.defaults, opts...)
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:        o.MaxTokens,
		Temperature:      o.Temperature,
		TopP:             topP,
		FrequencyPenalty: frequencyPenalty,
		PresencePenalty:  presencePenalty,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("requesting completion", "topic", topic, "model", c.model, "max_tokens", o.MaxTokens)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.NewError(retry.Classify(err), fmt.Errorf("send completion request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", retry.StatusError(resp, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", retry.NewError(retry.KindUnknown, fmt.Errorf("decode completion: %w", err))
	}
	if len(decoded.Choices) == 0 {
		return "", retry.NewError(retry.KindUnknown, errors.New("completion has no choices"))
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", retry.NewError(retry.KindUnknown, errors.New("empty completion"))
	}

	c.logger.Info("completion received", "topic", topic, "chars", len([]rune(content)), "tokens", decoded.Usage.TotalTokens)
	return content, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a professional blog writer."
	}
	return prompt
}
