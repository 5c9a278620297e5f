package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/core/billing"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
)

type UserService struct {
	db                  core.DbClient
	catalog             *billing.Catalog
	requireSubscription bool
	now                 func() time.Time
}

func NewUserService(db core.DbClient, catalog *billing.Catalog, requireSubscription bool) *UserService {
	return &UserService{db: db, catalog: catalog, requireSubscription: requireSubscription, now: time.Now}
}

func (s *UserService) Create(ctx context.Context, u *models.User) error {
	if u == nil || u.Email == "" || u.PasswordHash == "" {
		return errors.New("invalid user payload")
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = models.UserStatusInactive
	}

	err := s.db.CreateUser(ctx, u)
	if !errors.Is(err, core.ErrConflict) {
		return err
	}

	// checkout may have created the account before the user ever signed up
	existing, lookupErr := s.db.GetUserByEmail(ctx, u.Email)
	if lookupErr != nil || existing.PasswordHash != "" {
		return err
	}
	if err := s.db.SetUserPassword(ctx, existing.ID, u.PasswordHash, u.FullName); err != nil {
		return err
	}
	u.ID, u.Status, u.CustomerID, u.PriceID = existing.ID, existing.Status, existing.CustomerID, existing.PriceID
	if u.FullName == "" {
		u.FullName = existing.FullName
	}
	u.CreatedAt = existing.CreatedAt
	logger.Info("claimed account created at checkout", "user_id", existing.ID)
	return nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.db.GetUserByID(ctx, id)
}

// Authenticate returns the user whose password matches. Unknown emails, wrong
// passwords and accounts created by checkout that never set a password all
// give ErrUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, core.ErrUnauthorized
	}
	return user, nil
}

// Allowance is how much of today's generation quota a user has spent.
type Allowance struct {
	Plan      string    `json:"plan"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reached   bool      `json:"reached"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// UploadAllowance counts today's quizzes and summaries against the user's plan.
// Only an active subscription lifts the user off the basic limit. When the
// lookup fails the allowance is reported as reached.
func (s *UserService) UploadAllowance(ctx context.Context, userID string) Allowance {
	from, to := dayBounds(s.now())
	basic := s.catalog.PlanForPrice("")
	reached := Allowance{Plan: basic.ID, Limit: basic.DailyLimit, Reached: true, ResetsAt: to}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("upload allowance: user lookup failed", "user_id", userID, "err", err)
		return reached
	}

	priceID := ""
	if user.Status == models.UserStatusActive {
		priceID = user.PriceID
	}
	plan := s.catalog.PlanForPrice(priceID)

	used, err := s.db.CountGenerationsSince(ctx, userID, from, to)
	if err != nil {
		logger.Error("upload allowance: count failed", "user_id", userID, "err", err)
		reached.Plan, reached.Limit = plan.ID, plan.DailyLimit
		return reached
	}

	a := Allowance{
		Plan:     plan.ID,
		Used:     used,
		Limit:    plan.DailyLimit,
		Reached:  used >= plan.DailyLimit,
		ResetsAt: to,
	}
	if !a.Reached {
		a.Remaining = plan.DailyLimit - used
	}
	return a
}

// CheckUpload decides whether the user may generate another document right now.
func (s *UserService) CheckUpload(ctx context.Context, userID string) error {
	if s.requireSubscription {
		user, err := s.db.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Status != models.UserStatusActive {
			return core.ErrSubscriptionRequired
		}
	}
	if s.UploadAllowance(ctx, userID).Reached {
		return core.ErrUploadLimit
	}
	return nil
}

// dayBounds returns local midnight today and local midnight tomorrow.
func dayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
