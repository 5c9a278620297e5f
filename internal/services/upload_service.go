package services

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Learnify/internal/core"
	objectclient "github.com/markdave123-py/Learnify/internal/core/object-client"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
)

// StudyGenerator turns document text into unsaved study material.
type StudyGenerator interface {
	GenerateQuiz(ctx context.Context, text string) (*models.Quiz, error)
	GenerateSummary(ctx context.Context, text string) (*models.Summary, error)
}

type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
	Kind        string // quiz | summary, empty means quiz
}

type UploadResult struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	FileName string `json:"filename"`
	Title    string `json:"title"`
}

type UploadService struct {
	db        core.DbClient
	storage   core.ObjectClient
	extractor core.DocumentExtractor
	generator StudyGenerator
	users     *UserService
	now       func() time.Time
}

func NewUploadService(
	db core.DbClient,
	storage core.ObjectClient,
	extractor core.DocumentExtractor,
	generator StudyGenerator,
	users *UserService,
) *UploadService {
	return &UploadService{
		db:        db,
		storage:   storage,
		extractor: extractor,
		generator: generator,
		users:     users,
		now:       time.Now,
	}
}

// UploadAndGenerate stores the PDF, extracts its text, asks the model for a quiz
// or summary and saves the result for the user.
func (s *UploadService) UploadAndGenerate(ctx context.Context, userID string, in UploadInput) (*UploadResult, error) {
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = models.KindQuiz
	}
	if kind != models.KindQuiz && kind != models.KindSummary {
		return nil, fmt.Errorf("%w: unknown kind %q", core.ErrInvalidInput, in.Kind)
	}
	if !isPDF(in.FileName, in.ContentType) {
		return nil, core.ErrUnsupportedFile
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", core.ErrInvalidInput)
	}

	if err := s.users.CheckUpload(ctx, userID); err != nil {
		return nil, err
	}

	key := objectclient.ObjectKey(s.now(), in.FileName)

	var text string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.storage.UploadFile(gctx, key, in.Data, "application/pdf"); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		return nil
	})
	g.Go(func() error {
		t, err := s.extractor.ExtractText(gctx, in.Data, "application/pdf")
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	if err := g.Wait(); err != nil {
		s.discard(key)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		s.discard(key)
		return nil, core.ErrNoText
	}

	logger.Info("document text extracted", "user_id", userID, "key", key, "kind", kind, "chars", len(text))

	res := &UploadResult{Kind: kind, FileName: in.FileName}
	var err error
	switch kind {
	case models.KindQuiz:
		res.ID, res.Title, err = s.saveQuiz(ctx, userID, key, text)
	case models.KindSummary:
		res.ID, res.Title, err = s.saveSummary(ctx, userID, key, text)
	}
	if err != nil {
		s.discard(key)
		return nil, err
	}
	return res, nil
}

func (s *UploadService) saveQuiz(ctx context.Context, userID, key, text string) (string, string, error) {
	quiz, err := s.generator.GenerateQuiz(ctx, text)
	if err != nil {
		return "", "", err
	}
	quiz.ID = uuid.NewString()
	quiz.UserID = userID
	quiz.SourceFile = key
	if err := s.db.CreateQuiz(ctx, quiz); err != nil {
		return "", "", fmt.Errorf("save quiz: %w", err)
	}
	logger.Info("quiz created", "quiz_id", quiz.ID, "questions", len(quiz.Questions))
	return quiz.ID, quiz.Title, nil
}

func (s *UploadService) saveSummary(ctx context.Context, userID, key, text string) (string, string, error) {
	summary, err := s.generator.GenerateSummary(ctx, text)
	if err != nil {
		return "", "", err
	}
	summary.ID = uuid.NewString()
	summary.UserID = userID
	summary.SourceFile = key
	if err := s.db.CreateSummary(ctx, summary); err != nil {
		return "", "", fmt.Errorf("save summary: %w", err)
	}
	logger.Info("summary created", "summary_id", summary.ID, "slides", len(summary.Slides))
	return summary.ID, summary.Title, nil
}

// discard removes an uploaded file whose generation failed. Best effort.
func (s *UploadService) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		logger.Warn("could not delete orphaned upload", "key", key, "err", err)
	}
}

func isPDF(fileName, contentType string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}
