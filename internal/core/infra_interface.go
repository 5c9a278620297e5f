package core

import (
	"context"
	"time"

	"github.com/markdave123-py/Learnify/internal/models"
)

// DbClient defines all persistence operations the services need.
// Lookups that find nothing return ErrNotFound.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpsertUserByEmail(ctx context.Context, user *models.User) error
	UpdateUserStatusByCustomer(ctx context.Context, customerID, status string) error
	SetUserPassword(ctx context.Context, id, passwordHash, fullName string) error

	CreatePayment(ctx context.Context, p *models.Payment) error

	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuizByID(ctx context.Context, id string) (*models.Quiz, error)
	ListQuizzesByUser(ctx context.Context, userID string) ([]models.Quiz, error)
	DeleteQuiz(ctx context.Context, id, userID string) error
	MarkQuizComplete(ctx context.Context, id, userID string) (*models.Quiz, error)

	CreateSummary(ctx context.Context, summary *models.Summary) error
	GetSummaryByID(ctx context.Context, id string) (*models.Summary, error)
	ListSummariesByUser(ctx context.Context, userID string) ([]models.Summary, error)
	DeleteSummary(ctx context.Context, id, userID string) error
	MarkSummaryComplete(ctx context.Context, id, userID string) (*models.Summary, error)

	// CountGenerationsSince counts quizzes and summaries created by the user in [from, to).
	CountGenerationsSince(ctx context.Context, userID string, from, to time.Time) (int, error)

	GetQuizProgress(ctx context.Context, quizID, userID string) (*models.QuizProgress, error)
	// UpdateQuizProgress runs fn on the stored progress (nil when there is none)
	// while holding a per quiz and user lock, then saves what fn returns.
	// A nil result deletes the stored progress.
	UpdateQuizProgress(ctx context.Context, quizID, userID string, fn ProgressUpdate) error
	DeleteQuizProgress(ctx context.Context, quizID, userID string) error

	Close() error
}

// ProgressUpdate computes the next flash-card progress from the stored one.
type ProgressUpdate func(stored *models.QuizProgress) (*models.QuizProgress, error)

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}
