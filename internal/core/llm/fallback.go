package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
)

// FallbackLLM tries Primary and switches to Secondary only when Primary is rate limited.
// Either side may be nil, in which case the other is used alone.
type FallbackLLM struct {
	Primary   core.LLMProvider
	Secondary core.LLMProvider
}

var _ core.LLMProvider = (*FallbackLLM)(nil)

func NewFallbackLLM(primary, secondary core.LLMProvider) (*FallbackLLM, error) {
	if primary == nil && secondary == nil {
		return nil, errors.New("no LLM provider configured")
	}
	if primary == nil {
		primary, secondary = secondary, nil
	}
	return &FallbackLLM{Primary: primary, Secondary: secondary}, nil
}

func (f *FallbackLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	out, err := f.Primary.Generate(ctx, systemPrompt, userPrompt)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, core.ErrRateLimited) || f.Secondary == nil {
		if errors.Is(err, core.ErrRateLimited) {
			return "", fmt.Errorf("%w: %v", core.ErrProvidersExhausted, err)
		}
		return "", err
	}

	logger.Warn("primary LLM rate limited, falling back", "primary", providerName(f.Primary), "secondary", providerName(f.Secondary))

	out, secErr := f.Secondary.Generate(ctx, systemPrompt, userPrompt)
	if secErr != nil {
		logger.Error("fallback LLM failed", "provider", providerName(f.Secondary), "err", secErr)
		return "", fmt.Errorf("%w: primary: %v; secondary: %v", core.ErrProvidersExhausted, err, secErr)
	}
	return out, nil
}

func providerName(p core.LLMProvider) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
