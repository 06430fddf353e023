package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yourusername/studyhub-api/internal/config"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

// ErrNotConfigured возвращается, если API-ключ не задан
var ErrNotConfigured = errors.New("llm client is not configured")

// Message - сообщение чата в формате chat-completions
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client - клиент OpenAI-совместимого chat-completions API
type Client struct {
	http        *resty.Client
	model       string
	temperature float64
	configured  bool
}

// NewClient создает клиента. Без API-ключа клиент создается, но Complete возвращает ErrNotConfigured.
func NewClient(cfg config.LLMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:        httpClient,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		configured:  cfg.APIKey != "",
	}
}

// Complete отправляет сообщения и возвращает текст первого варианта ответа
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	var out chatResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: messages, Temperature: c.temperature}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%w: chat completion request failed: %v", apperrors.ErrUpstream, err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("%w: chat completion returned %d: %s", apperrors.ErrUpstream, resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", apperrors.ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}
