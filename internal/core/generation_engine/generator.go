package generation_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
)

const (
	defaultQuizTitle    = "Untitled Quiz"
	defaultSummaryTitle = "Untitled Summary"
)

// Generator turns extracted document text into unsaved quizzes and summaries.
type Generator struct {
	llm            core.LLMProvider
	maxInputTokens int
}

func NewGenerator(llm core.LLMProvider, maxInputTokens int) *Generator {
	return &Generator{llm: llm, maxInputTokens: maxInputTokens}
}

func (g *Generator) GenerateQuiz(ctx context.Context, text string) (*models.Quiz, error) {
	raw, err := g.complete(ctx, QuizSystemPrompt, quizUserPrompt, text)
	if err != nil {
		return nil, err
	}

	parsed := ParseQuizText(raw)
	if len(parsed.Questions) == 0 {
		logger.Warn("quiz completion had no usable questions", "chars", len(raw))
		return nil, core.ErrNothingGenerated
	}

	quiz := &models.Quiz{
		Title:   orDefault(parsed.Title, defaultQuizTitle),
		Summary: parsed.Summary,
		MinRead: &parsed.MinRead,
	}
	for i, q := range parsed.Questions {
		quiz.Questions = append(quiz.Questions, models.Question{
			Position: i,
			Question: q.Question,
			Answer:   q.Answer,
		})
	}
	return quiz, nil
}

func (g *Generator) GenerateSummary(ctx context.Context, text string) (*models.Summary, error) {
	raw, err := g.complete(ctx, SummarySystemPrompt, summaryUserPrompt, text)
	if err != nil {
		return nil, err
	}

	parsed := ParseSummaryText(raw)
	if len(parsed.Slides) == 0 {
		logger.Warn("summary completion had no slides", "chars", len(raw))
		return nil, core.ErrNothingGenerated
	}

	summary := &models.Summary{
		Title:       orDefault(parsed.Title, defaultSummaryTitle),
		Overview:    optional(parsed.Overview),
		KeyTakeaway: optional(parsed.KeyTakeaway),
	}
	if parsed.MinuteRead > 0 {
		summary.MinRead = &parsed.MinuteRead
	}
	for i, s := range parsed.Slides {
		summary.Slides = append(summary.Slides, models.Slide{
			Position: i,
			Heading:  s.Heading,
			Content:  s.Content,
		})
	}
	return summary, nil
}

func (g *Generator) complete(ctx context.Context, system string, user func(string) string, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.ErrNoText
	}
	text = FitToBudget(text, g.maxInputTokens)

	raw, err := g.llm.Generate(ctx, system, user(text))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return raw, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
