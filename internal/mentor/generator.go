package mentor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"trading-journal-go/internal/config"
)

const (
	ProviderGemini = "gemini"
	ProviderChat   = "chat"

	defaultChatBaseURL = "https://api.openai.com/v1"
)

// Generator turns a prompt into free text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator builds the provider named in cfg. It returns nil and no error when
// no API key is configured, which leaves the mentor disabled.
func NewGenerator(ctx context.Context, cfg *config.Mentor, logger *zap.Logger) (Generator, error) {
	if strings.TrimSpace(cfg.ApiKey) == "" {
		logger.Warn("Mentor API key not configured, reviews are disabled")
		return nil, nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		return NewGeminiGenerator(ctx, cfg, logger)
	case ProviderChat:
		return NewChatGenerator(cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown mentor provider %q", cfg.Provider)
}

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini client. A non-empty BaseURL overrides the
// public endpoint.
func NewGeminiGenerator(ctx context.Context, cfg *config.Mentor, logger *zap.Logger) (*GeminiGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.ApiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	logger.Info("Using Gemini mentor", zap.String("model", cfg.Model))
	return &GeminiGenerator{client: client, model: cfg.Model, logger: logger}, nil
}

func (g *GeminiGenerator) Name() string { return ProviderGemini }

// Generate sends prompt as a single user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// ChatGenerator calls an OpenAI compatible chat completions endpoint.
type ChatGenerator struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

var _ Generator = (*ChatGenerator)(nil)

// NewChatGenerator creates a chat completions client for cfg.BaseURL.
func NewChatGenerator(cfg *config.Mentor, logger *zap.Logger) *ChatGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(cfg.ApiKey).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	logger.Info("Using chat completions mentor", zap.String("base_url", baseURL), zap.String("model", cfg.Model))
	return &ChatGenerator{client: client, model: cfg.Model, logger: logger}
}

func (c *ChatGenerator) Name() string { return ProviderChat }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate posts prompt as a single user message and returns the first choice.
func (c *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := c.client.R().
		SetBody(chatRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&chatResponse{})

	resp, err := c.doRequest(ctx, "POST", "/chat/completions", req)
	if err != nil {
		c.logger.Error("Chat completion failed", zap.Error(err))
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	result := resp.Result().(*chatResponse)
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

// doRequest executes req once. Failures are returned to the caller, which
// decides whether to try again.
func (c *ChatGenerator) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
	}
	return resp, nil
}
