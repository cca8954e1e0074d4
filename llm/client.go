// ABOUTME: OpenRouter chat completions client used when no structured intent matches
// ABOUTME: One request per call with a fixed timeout, no retries

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/partneros/models"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "qwen/qwen3.5-plus-02-15"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 * 1024 * 1024
	historyLimit     = 10
)

var (
	ErrNoAPIKey      = errors.New("API key not configured")
	ErrInvalidAPIKey = errors.New("invalid API key format")
	ErrAPI           = errors.New("API error")
)

// ValidateKey checks the OpenRouter key shape: at least 20 characters starting with "sk-".
func ValidateKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if len(key) < 20 || !strings.HasPrefix(key, "sk-") {
		return ErrInvalidAPIKey
	}
	return nil
}

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	SiteName string
}

// DefaultConfig returns OpenRouter defaults for apiKey.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		BaseURL:  DefaultBaseURL,
		Model:    DefaultModel,
		Timeout:  DefaultTimeout,
		SiteName: "PartnerOS",
	}
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	siteName   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		siteName:   cfg.SiteName,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// APIKey returns the configured default key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// ChatRequest overrides the client's key and model when APIKey or Model are set.
type ChatRequest struct {
	System  string
	User    string
	History []models.Message
	APIKey  string
	Model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CompleteWithSystem sends a single system + user exchange.
func (c *Client) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return c.Chat(ctx, ChatRequest{System: system, User: user})
}

// Chat sends the request once. Non-2xx statuses and empty replies are errors.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	key := req.APIKey
	if key == "" {
		key = c.apiKey
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := []chatMessage{}
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	history := req.History
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, m := range history {
		role := m.Role
		if role != models.RoleUser {
			role = models.RoleAssistant
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(chatPayload{
		Model:       model,
		Messages:    messages,
		MaxTokens:   2048,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)
	if c.siteName != "" {
		httpReq.Header.Set("X-Title", c.siteName)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPI, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no completion returned", ErrAPI)
	}

	c.logger.Debug("model call completed",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)))
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
