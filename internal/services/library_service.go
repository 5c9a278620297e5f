package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
)

// LibraryService reads and manages a user's saved quizzes and summaries.
// Records owned by someone else look exactly like missing ones.
type LibraryService struct {
	db      core.DbClient
	storage core.ObjectClient
}

func NewLibraryService(db core.DbClient, storage core.ObjectClient) *LibraryService {
	return &LibraryService{db: db, storage: storage}
}

func (s *LibraryService) Quiz(ctx context.Context, userID, id string) (*models.Quiz, error) {
	q, err := s.db.GetQuizByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, core.ErrNotFound
	}
	return q, nil
}

func (s *LibraryService) Quizzes(ctx context.Context, userID string) ([]models.Quiz, error) {
	return s.db.ListQuizzesByUser(ctx, userID)
}

func (s *LibraryService) DeleteQuiz(ctx context.Context, userID, id string) error {
	q, err := s.Quiz(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteQuiz(ctx, id, userID); err != nil {
		return err
	}
	s.removeSource(ctx, q.SourceFile)
	return nil
}

func (s *LibraryService) Summary(ctx context.Context, userID, id string) (*models.Summary, error) {
	sm, err := s.db.GetSummaryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sm.UserID != userID {
		return nil, core.ErrNotFound
	}
	return sm, nil
}

func (s *LibraryService) Summaries(ctx context.Context, userID string) ([]models.Summary, error) {
	return s.db.ListSummariesByUser(ctx, userID)
}

func (s *LibraryService) DeleteSummary(ctx context.Context, userID, id string) error {
	sm, err := s.Summary(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteSummary(ctx, id, userID); err != nil {
		return err
	}
	s.removeSource(ctx, sm.SourceFile)
	return nil
}

// MarkComplete flags a quiz or summary as done and returns the updated record.
func (s *LibraryService) MarkComplete(ctx context.Context, userID, id, kind string) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", core.ErrInvalidInput)
	}
	switch kind {
	case "", models.KindQuiz:
		return s.db.MarkQuizComplete(ctx, id, userID)
	case models.KindSummary:
		return s.db.MarkSummaryComplete(ctx, id, userID)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", core.ErrInvalidInput, kind)
	}
}

// SourceFile returns the PDF a quiz or summary was generated from, with the
// name it was stored under.
func (s *LibraryService) SourceFile(ctx context.Context, userID, id, kind string) ([]byte, string, error) {
	var key string
	switch kind {
	case "", models.KindQuiz:
		q, err := s.Quiz(ctx, userID, id)
		if err != nil {
			return nil, "", err
		}
		key = q.SourceFile
	case models.KindSummary:
		sm, err := s.Summary(ctx, userID, id)
		if err != nil {
			return nil, "", err
		}
		key = sm.SourceFile
	default:
		return nil, "", fmt.Errorf("%w: unknown type %q", core.ErrInvalidInput, kind)
	}
	if key == "" || s.storage == nil {
		return nil, "", core.ErrNotFound
	}

	data, err := s.storage.GetFile(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("fetch source %s: %w", key, err)
	}
	return data, key, nil
}

func (s *LibraryService) removeSource(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		logger.Warn("could not delete source file", "key", key, "err", err)
	}
}
