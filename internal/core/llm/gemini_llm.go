package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/markdave123-py/Learnify/internal/core"
)

const (
	geminiTemperature     = 0.7
	geminiMaxOutputTokens = 1500
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Name() string { return "gemini" }

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(geminiTemperature)
	m.SetMaxOutputTokens(geminiMaxOutputTokens)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		if isGeminiRateLimit(err) {
			return "", fmt.Errorf("gemini generate: %w", core.ErrRateLimited)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini generate: no response text received")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("gemini generate: no response text received")
	}
	return b.String(), nil
}

func isGeminiRateLimit(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}
	var aErr *apierror.APIError
	if errors.As(err, &aErr) {
		if aErr.HTTPCode() == http.StatusTooManyRequests {
			return true
		}
		if st := aErr.GRPCStatus(); st != nil && st.Code() == codes.ResourceExhausted {
			return true
		}
	}
	return false
}
