// Package testutil holds in-memory implementations of the core interfaces for tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/models"
)

type MemDB struct {
	mu        sync.Mutex
	Users     map[string]*models.User
	Payments  []models.Payment
	Quizzes   map[string]*models.Quiz
	Summaries map[string]*models.Summary
	Progress  map[string]*models.QuizProgress

	// CountErr, when set, is returned by CountGenerationsSince.
	CountErr error
	// Now stamps created records; time.Now when nil.
	Now func() time.Time
}

var _ core.DbClient = (*MemDB)(nil)

func NewMemDB() *MemDB {
	return &MemDB{
		Users:     map[string]*models.User{},
		Quizzes:   map[string]*models.Quiz{},
		Summaries: map[string]*models.Summary{},
		Progress:  map[string]*models.QuizProgress{},
	}
}

func (m *MemDB) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemDB) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", core.ErrConflict)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt, user.UpdatedAt = m.now(), m.now()
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *MemDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (m *MemDB) UpsertUserByEmail(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == user.Email {
			if user.FullName != "" {
				u.FullName = user.FullName
			}
			u.CustomerID, u.PriceID, u.Status = user.CustomerID, user.PriceID, user.Status
			u.UpdatedAt = m.now()
			user.ID = u.ID
			return nil
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *MemDB) UpdateUserStatusByCustomer(ctx context.Context, customerID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.CustomerID == customerID {
			u.Status = status
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *MemDB) SetUserPassword(ctx context.Context, id, passwordHash, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = passwordHash
	if fullName != "" {
		u.FullName = fullName
	}
	return nil
}

func (m *MemDB) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Payments {
		if existing.StripePaymentID == p.StripePaymentID {
			return fmt.Errorf("%w: payments_stripe_payment_id_key", core.ErrConflict)
		}
	}
	m.Payments = append(m.Payments, *p)
	return nil
}

func (m *MemDB) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz.CreatedAt, quiz.UpdatedAt = m.now(), m.now()
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = uuid.NewString()
		}
		quiz.Questions[i].QuizID = quiz.ID
	}
	cp := *quiz
	cp.Questions = append([]models.Question(nil), quiz.Questions...)
	m.Quizzes[quiz.ID] = &cp
	return nil
}

func (m *MemDB) GetQuizByID(ctx context.Context, id string) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.Quizzes[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *q
	cp.Questions = append([]models.Question(nil), q.Questions...)
	return &cp, nil
}

func (m *MemDB) ListQuizzesByUser(ctx context.Context, userID string) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Quiz{}
	for _, q := range m.Quizzes {
		if q.UserID == userID {
			cp := *q
			cp.Questions = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemDB) DeleteQuiz(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.Quizzes[id]
	if !ok || q.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.Quizzes, id)
	delete(m.Progress, progressKey(id, userID))
	return nil
}

func (m *MemDB) MarkQuizComplete(ctx context.Context, id, userID string) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.Quizzes[id]
	if !ok || q.UserID != userID {
		return nil, core.ErrNotFound
	}
	q.Complete = true
	q.UpdatedAt = m.now()
	cp := *q
	cp.Questions = nil
	return &cp, nil
}

func (m *MemDB) CreateSummary(ctx context.Context, summary *models.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary.CreatedAt, summary.UpdatedAt = m.now(), m.now()
	for i := range summary.Slides {
		if summary.Slides[i].ID == "" {
			summary.Slides[i].ID = uuid.NewString()
		}
		summary.Slides[i].SummaryID = summary.ID
	}
	cp := *summary
	cp.Slides = append([]models.Slide(nil), summary.Slides...)
	m.Summaries[summary.ID] = &cp
	return nil
}

func (m *MemDB) GetSummaryByID(ctx context.Context, id string) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Summaries[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	cp.Slides = append([]models.Slide(nil), s.Slides...)
	return &cp, nil
}

func (m *MemDB) ListSummariesByUser(ctx context.Context, userID string) ([]models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Summary{}
	for _, s := range m.Summaries {
		if s.UserID == userID {
			cp := *s
			cp.Slides = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemDB) DeleteSummary(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Summaries[id]
	if !ok || s.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.Summaries, id)
	return nil
}

func (m *MemDB) MarkSummaryComplete(ctx context.Context, id, userID string) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Summaries[id]
	if !ok || s.UserID != userID {
		return nil, core.ErrNotFound
	}
	s.Complete = true
	s.UpdatedAt = m.now()
	cp := *s
	cp.Slides = nil
	return &cp, nil
}

func (m *MemDB) CountGenerationsSince(ctx context.Context, userID string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }
	n := 0
	for _, q := range m.Quizzes {
		if q.UserID == userID && in(q.CreatedAt) {
			n++
		}
	}
	for _, s := range m.Summaries {
		if s.UserID == userID && in(s.CreatedAt) {
			n++
		}
	}
	return n, nil
}

func progressKey(quizID, userID string) string { return quizID + "/" + userID }

func (m *MemDB) GetQuizProgress(ctx context.Context, quizID, userID string) (*models.QuizProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Progress[progressKey(quizID, userID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	cp.KnownCards = append([]string{}, p.KnownCards...)
	cp.UnknownCards = append([]string{}, p.UnknownCards...)
	return &cp, nil
}

// SaveQuizProgress stores p as is; tests use it to seed progress.
func (m *MemDB) SaveQuizProgress(ctx context.Context, p *models.QuizProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putProgress(p)
	return nil
}

// UpdateQuizProgress holds the store lock for the whole read, fn and write, so
// concurrent updates are serialised like the row lock in Postgres.
func (m *MemDB) UpdateQuizProgress(ctx context.Context, quizID, userID string, fn core.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored *models.QuizProgress
	if p, ok := m.Progress[progressKey(quizID, userID)]; ok {
		cp := *p
		cp.KnownCards = append([]string{}, p.KnownCards...)
		cp.UnknownCards = append([]string{}, p.UnknownCards...)
		stored = &cp
	}

	next, err := fn(stored)
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.Progress, progressKey(quizID, userID))
		return nil
	}
	next.QuizID, next.UserID = quizID, userID
	m.putProgress(next)
	return nil
}

func (m *MemDB) putProgress(p *models.QuizProgress) {
	cp := *p
	cp.KnownCards = append([]string{}, p.KnownCards...)
	cp.UnknownCards = append([]string{}, p.UnknownCards...)
	m.Progress[progressKey(p.QuizID, p.UserID)] = &cp
}

func (m *MemDB) DeleteQuizProgress(ctx context.Context, quizID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Progress, progressKey(quizID, userID))
	return nil
}

func (m *MemDB) Close() error { return nil }
