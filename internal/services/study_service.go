package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
)

// Stored flash-card progress older than this is ignored and dropped.
const progressTTL = 30 * 24 * time.Hour

const (
	ActionKnown   = "known"
	ActionUnknown = "unknown"
	ActionNext    = "next"
	ActionPrev    = "prev"
	ActionReset   = "reset"
)

// ProgressView is the flash-card state the study page renders.
type ProgressView struct {
	QuizID        string           `json:"quizId"`
	Total         int              `json:"total"`
	CurrentIndex  int              `json:"currentIndex"`
	Current       *models.Question `json:"current"`
	Known         []string         `json:"knownCards"`
	Unknown       []string         `json:"unknownCards"`
	Unanswered    int              `json:"unanswered"`
	Percent       int              `json:"percent"`
	HasCelebrated bool             `json:"hasCelebrated"`
	Celebrate     bool             `json:"celebrate"`
	Complete      bool             `json:"complete"`
}

type StudyService struct {
	db  core.DbClient
	now func() time.Time
}

func NewStudyService(db core.DbClient) *StudyService {
	return &StudyService{db: db, now: time.Now}
}

func (s *StudyService) Progress(ctx context.Context, userID, quizID string) (*ProgressView, error) {
	quiz, err := s.ownedQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}

	stored, err := s.db.GetQuizProgress(ctx, quiz.ID, userID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		stored = nil
	case err != nil:
		return nil, fmt.Errorf("load progress: %w", err)
	}

	p, expired := s.restore(quiz, userID, stored)
	if expired {
		if err := s.db.DeleteQuizProgress(ctx, quiz.ID, userID); err != nil {
			logger.Warn("could not drop expired progress", "quiz_id", quiz.ID, "err", err)
		}
	}
	return view(quiz, p, false), nil
}

// Apply performs one flash-card action and persists the new state. Updates for
// the same quiz and user are serialised by the store, so concurrent actions
// never overwrite each other. When every card has been marked known or unknown
// the quiz is marked complete.
func (s *StudyService) Apply(ctx context.Context, userID, quizID, action string) (*ProgressView, error) {
	switch action {
	case ActionKnown, ActionUnknown, ActionNext, ActionPrev, ActionReset:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", core.ErrInvalidInput, action)
	}

	quiz, err := s.ownedQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}

	var (
		result    *models.QuizProgress
		celebrate bool
	)
	err = s.db.UpdateQuizProgress(ctx, quiz.ID, userID, func(stored *models.QuizProgress) (*models.QuizProgress, error) {
		if action == ActionReset {
			result = fresh(quiz.ID, userID)
			return nil, nil
		}
		p, _ := s.restore(quiz, userID, stored)
		celebrate = step(quiz, p, action)
		p.LastUpdated = s.now()
		result = p
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	if action != ActionReset && !quiz.Complete && allAnswered(quiz, result) {
		if _, err := s.db.MarkQuizComplete(ctx, quiz.ID, userID); err != nil {
			logger.Error("mark quiz complete failed", "quiz_id", quiz.ID, "err", err)
		} else {
			quiz.Complete = true
		}
	}
	return view(quiz, result, celebrate), nil
}

// step applies action to p and reports whether it should trigger the
// end-of-deck celebration.
func step(quiz *models.Quiz, p *models.QuizProgress, action string) bool {
	last := len(quiz.Questions) - 1
	celebrate := false
	next := func() {
		if p.CurrentIndex < last {
			p.CurrentIndex++
			if p.CurrentIndex >= last && !p.HasCelebrated {
				celebrate = true
			}
		} else if !p.HasCelebrated {
			celebrate = true
		}
		if celebrate {
			p.HasCelebrated = true
		}
	}

	cardID := quiz.Questions[p.CurrentIndex].ID
	switch action {
	case ActionKnown:
		p.KnownCards = addCard(p.KnownCards, cardID)
		p.UnknownCards = removeCard(p.UnknownCards, cardID)
		next()
	case ActionUnknown:
		p.UnknownCards = addCard(p.UnknownCards, cardID)
		p.KnownCards = removeCard(p.KnownCards, cardID)
		next()
	case ActionNext:
		next()
	case ActionPrev:
		if p.CurrentIndex > 0 {
			p.CurrentIndex--
		}
	}
	return celebrate
}

func (s *StudyService) ownedQuiz(ctx context.Context, userID, quizID string) (*models.Quiz, error) {
	quiz, err := s.db.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, core.ErrNotFound
	}
	if len(quiz.Questions) == 0 {
		return nil, core.ErrNothingGenerated
	}
	return quiz, nil
}

// restore turns stored progress into a usable one: nothing stored or an
// expired record gives a fresh start (expired is then true), cards no longer
// in the quiz are dropped and the index is clamped to the deck.
func (s *StudyService) restore(quiz *models.Quiz, userID string, stored *models.QuizProgress) (*models.QuizProgress, bool) {
	if stored == nil {
		return fresh(quiz.ID, userID), false
	}
	if s.now().Sub(stored.LastUpdated) >= progressTTL {
		return fresh(quiz.ID, userID), true
	}

	p := *stored
	ids := make(map[string]bool, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids[q.ID] = true
	}
	p.KnownCards = keepCards(p.KnownCards, ids)
	p.UnknownCards = keepCards(p.UnknownCards, ids)

	if p.CurrentIndex < 0 {
		p.CurrentIndex = 0
	}
	if p.CurrentIndex > len(quiz.Questions)-1 {
		p.CurrentIndex = len(quiz.Questions) - 1
	}
	return &p, false
}

func fresh(quizID, userID string) *models.QuizProgress {
	return &models.QuizProgress{QuizID: quizID, UserID: userID, KnownCards: []string{}, UnknownCards: []string{}}
}

func view(quiz *models.Quiz, p *models.QuizProgress, celebrate bool) *ProgressView {
	total := len(quiz.Questions)
	answered := len(p.KnownCards) + len(p.UnknownCards)
	current := quiz.Questions[p.CurrentIndex]
	return &ProgressView{
		QuizID:        quiz.ID,
		Total:         total,
		CurrentIndex:  p.CurrentIndex,
		Current:       &current,
		Known:         p.KnownCards,
		Unknown:       p.UnknownCards,
		Unanswered:    total - answered,
		Percent:       answered * 100 / total,
		HasCelebrated: p.HasCelebrated,
		Celebrate:     celebrate,
		Complete:      quiz.Complete,
	}
}

func allAnswered(quiz *models.Quiz, p *models.QuizProgress) bool {
	seen := make(map[string]bool, len(p.KnownCards)+len(p.UnknownCards))
	for _, id := range p.KnownCards {
		seen[id] = true
	}
	for _, id := range p.UnknownCards {
		seen[id] = true
	}
	for _, q := range quiz.Questions {
		if !seen[q.ID] {
			return false
		}
	}
	return true
}

func addCard(cards []string, id string) []string {
	for _, c := range cards {
		if c == id {
			return cards
		}
	}
	return append(cards, id)
}

func removeCard(cards []string, id string) []string {
	out := cards[:0]
	for _, c := range cards {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

func keepCards(cards []string, ids map[string]bool) []string {
	out := []string{}
	for _, c := range cards {
		if ids[c] {
			out = addCard(out, c)
		}
	}
	return out
}
