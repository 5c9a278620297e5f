package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/Learnify/internal/core"
)

const (
	groqTemperature         = 0.7
	groqMaxCompletionTokens = 1024
)

// GroqLLM calls Groq through its OpenAI-compatible chat completions API.
type GroqLLM struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

var _ core.LLMProvider = (*GroqLLM)(nil)

// NewGroqLLM builds the client. rpm caps requests per minute on our side; 0 disables it.
func NewGroqLLM(apiKey, baseURL, model string, rpm int) (*GroqLLM, error) {
	if apiKey == "" {
		return nil, errors.New("groq api key is empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqLLM{client: &client, model: model, limiter: limiter}, nil
}

func (g *GroqLLM) Name() string { return "groq" }

func (g *GroqLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("groq throttle: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               g.model,
		Messages:            messages,
		Temperature:         openai.Float(groqTemperature),
		MaxCompletionTokens: openai.Int(groqMaxCompletionTokens),
	})
	if err != nil {
		if isGroqRateLimit(err) {
			return "", fmt.Errorf("groq chat completion: %w", core.ErrRateLimited)
		}
		return "", fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("groq chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func isGroqRateLimit(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
