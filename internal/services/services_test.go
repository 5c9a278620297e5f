package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/core/billing"
	"github.com/markdave123-py/Learnify/internal/models"
	"github.com/markdave123-py/Learnify/internal/testutil"
)

var testNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func newCatalog() *billing.Catalog {
	return billing.NewCatalog("price_basic", "price_pro", 5, 1000)
}

func newUsers(db *testutil.MemDB, requireSub bool) *UserService {
	s := NewUserService(db, newCatalog(), requireSub)
	s.now = func() time.Time { return testNow }
	return s
}

func seedUser(t *testing.T, db *testutil.MemDB, status, priceID string) *models.User {
	t.Helper()
	u := &models.User{Email: fmt.Sprintf("u%d@example.com", len(db.Users)), PasswordHash: "hash", Status: status, PriceID: priceID}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func seedQuizzes(t *testing.T, db *testutil.MemDB, userID string, n int, at time.Time) {
	t.Helper()
	db.Now = func() time.Time { return at }
	defer func() { db.Now = nil }()
	for i := 0; i < n; i++ {
		require.NoError(t, db.CreateQuiz(context.Background(), &models.Quiz{ID: fmt.Sprintf("%s-%d-%d", userID, at.Unix(), i), UserID: userID}))
	}
}

func TestUserServiceCreate(t *testing.T) {
	db := testutil.NewMemDB()
	s := newUsers(db, false)
	ctx := context.Background()

	assert.Error(t, s.Create(ctx, &models.User{Email: "a@example.com"}))

	u := &models.User{Email: " Ada@Example.com ", PasswordHash: "hash"}
	require.NoError(t, s.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, models.UserStatusInactive, u.Status)

	got, err := s.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = s.Create(ctx, &models.User{Email: "ada@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestUserServiceCreateClaimsCheckoutAccount(t *testing.T) {
	db := testutil.NewMemDB()
	s := newUsers(db, false)
	ctx := context.Background()

	paid := &models.User{Email: "grace@example.com", FullName: "Grace", CustomerID: "cus_9", PriceID: "price_pro", Status: models.UserStatusActive}
	require.NoError(t, db.UpsertUserByEmail(ctx, paid))

	u := &models.User{Email: "grace@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Create(ctx, u))
	assert.Equal(t, paid.ID, u.ID)
	assert.Equal(t, models.UserStatusActive, u.Status)
	assert.Equal(t, "Grace", u.FullName)
	assert.Equal(t, "hash", db.Users[paid.ID].PasswordHash)
}

func TestUserServiceAuthenticate(t *testing.T) {
	db := testutil.NewMemDB()
	s := newUsers(db, false)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Email: "ada@example.com", PasswordHash: string(hash)}
	require.NoError(t, s.Create(ctx, u))
	require.NoError(t, db.UpsertUserByEmail(ctx, &models.User{Email: "paid@example.com", Status: models.UserStatusActive}))

	got, err := s.Authenticate(ctx, "Ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = s.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = s.Authenticate(ctx, "paid@example.com", "")
	assert.ErrorIs(t, err, core.ErrUnauthorized, "checkout accounts have no password yet")

	byID, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
}

func TestUploadAllowance(t *testing.T) {
	ctx := context.Background()

	t.Run("basic limit counts today only", func(t *testing.T) {
		db := testutil.NewMemDB()
		s := newUsers(db, false)
		u := seedUser(t, db, models.UserStatusInactive, "")

		seedQuizzes(t, db, u.ID, 4, testNow.Add(-time.Hour))
		seedQuizzes(t, db, u.ID, 3, testNow.AddDate(0, 0, -1))

		a := s.UploadAllowance(ctx, u.ID)
		assert.Equal(t, billing.PlanBasic, a.Plan)
		assert.Equal(t, 4, a.Used)
		assert.Equal(t, 5, a.Limit)
		assert.Equal(t, 1, a.Remaining)
		assert.False(t, a.Reached)
		assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), a.ResetsAt)

		require.NoError(t, db.CreateSummary(ctx, &models.Summary{ID: "s1", UserID: u.ID}))
		db.Summaries["s1"].CreatedAt = testNow
		assert.True(t, s.UploadAllowance(ctx, u.ID).Reached)
	})

	t.Run("active pro", func(t *testing.T) {
		db := testutil.NewMemDB()
		s := newUsers(db, false)
		u := seedUser(t, db, models.UserStatusActive, "price_pro")
		seedQuizzes(t, db, u.ID, 6, testNow)

		a := s.UploadAllowance(ctx, u.ID)
		assert.Equal(t, billing.PlanPro, a.Plan)
		assert.False(t, a.Reached)
		assert.Equal(t, 994, a.Remaining)
	})

	t.Run("cancelled pro falls back to basic", func(t *testing.T) {
		db := testutil.NewMemDB()
		s := newUsers(db, false)
		u := seedUser(t, db, models.UserStatusCancelled, "price_pro")

		assert.Equal(t, billing.PlanBasic, s.UploadAllowance(ctx, u.ID).Plan)
	})

	t.Run("lookup errors count as reached", func(t *testing.T) {
		db := testutil.NewMemDB()
		s := newUsers(db, false)
		assert.True(t, s.UploadAllowance(ctx, "missing").Reached)

		u := seedUser(t, db, models.UserStatusActive, "price_pro")
		db.CountErr = errors.New("db down")
		a := s.UploadAllowance(ctx, u.ID)
		assert.True(t, a.Reached)
		assert.Equal(t, billing.PlanPro, a.Plan)
	})
}

func TestCheckUpload(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	inactive := seedUser(t, db, models.UserStatusInactive, "")
	active := seedUser(t, db, models.UserStatusActive, "price_basic")

	assert.NoError(t, newUsers(db, false).CheckUpload(ctx, inactive.ID))
	assert.ErrorIs(t, newUsers(db, true).CheckUpload(ctx, inactive.ID), core.ErrSubscriptionRequired)
	assert.NoError(t, newUsers(db, true).CheckUpload(ctx, active.ID))

	seedQuizzes(t, db, active.ID, 5, testNow)
	assert.ErrorIs(t, newUsers(db, true).CheckUpload(ctx, active.ID), core.ErrUploadLimit)
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	return s.text, s.err
}

type stubGenerator struct {
	err error
}

func (s stubGenerator) GenerateQuiz(ctx context.Context, text string) (*models.Quiz, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Quiz{Title: "Cells", Questions: []models.Question{{Question: "A?", Answer: "a"}}}, nil
}

func (s stubGenerator) GenerateSummary(ctx context.Context, text string) (*models.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Summary{Title: "Water", Slides: []models.Slide{{Heading: "Rain", Content: "- falls"}}}, nil
}

func newUploads(db *testutil.MemDB, obj *testutil.MemObjects, ex core.DocumentExtractor, gen StudyGenerator) *UploadService {
	s := NewUploadService(db, obj, ex, gen, newUsers(db, false))
	s.now = func() time.Time { return testNow }
	return s
}

func pdfInput(kind string) UploadInput {
	return UploadInput{FileName: "lecture notes.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4"), Kind: kind}
}

func TestUploadAndGenerateQuiz(t *testing.T) {
	db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
	u := seedUser(t, db, models.UserStatusInactive, "")
	s := newUploads(db, obj, stubExtractor{text: "cells are small"}, stubGenerator{})

	res, err := s.UploadAndGenerate(context.Background(), u.ID, pdfInput(""))
	require.NoError(t, err)

	assert.Equal(t, models.KindQuiz, res.Kind)
	assert.Equal(t, "Cells", res.Title)
	assert.Equal(t, "lecture notes.pdf", res.FileName)

	q := db.Quizzes[res.ID]
	require.NotNil(t, q)
	assert.Equal(t, u.ID, q.UserID)
	assert.Equal(t, fmt.Sprintf("%d-lecture_notes.pdf", testNow.UnixMilli()), q.SourceFile)
	assert.Contains(t, obj.Files, q.SourceFile)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, q.ID, q.Questions[0].QuizID)
}

func TestUploadAndGenerateSummary(t *testing.T) {
	db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
	u := seedUser(t, db, models.UserStatusInactive, "")
	s := newUploads(db, obj, stubExtractor{text: "rain"}, stubGenerator{})

	res, err := s.UploadAndGenerate(context.Background(), u.ID, pdfInput("Summary"))
	require.NoError(t, err)
	assert.Equal(t, models.KindSummary, res.Kind)
	require.Contains(t, db.Summaries, res.ID)
	assert.Len(t, db.Summaries[res.ID].Slides, 1)
}

func TestUploadAndGenerateRejects(t *testing.T) {
	ctx := context.Background()
	db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
	u := seedUser(t, db, models.UserStatusInactive, "")
	s := newUploads(db, obj, stubExtractor{text: "text"}, stubGenerator{})

	in := pdfInput("flashcards")
	_, err := s.UploadAndGenerate(ctx, u.ID, in)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	in = UploadInput{FileName: "notes.docx", ContentType: "application/msword", Data: []byte("x")}
	_, err = s.UploadAndGenerate(ctx, u.ID, in)
	assert.ErrorIs(t, err, core.ErrUnsupportedFile)

	in = pdfInput("")
	in.Data = nil
	_, err = s.UploadAndGenerate(ctx, u.ID, in)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	in = UploadInput{FileName: "scan.PDF", ContentType: "application/octet-stream", Data: []byte("%PDF")}
	_, err = s.UploadAndGenerate(ctx, u.ID, in)
	assert.NoError(t, err)

	assert.Equal(t, 1, obj.Len())
}

func TestUploadAndGenerateLimit(t *testing.T) {
	db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
	u := seedUser(t, db, models.UserStatusInactive, "")
	seedQuizzes(t, db, u.ID, 5, testNow)
	s := newUploads(db, obj, stubExtractor{text: "text"}, stubGenerator{})

	_, err := s.UploadAndGenerate(context.Background(), u.ID, pdfInput(""))
	assert.ErrorIs(t, err, core.ErrUploadLimit)
	assert.Zero(t, obj.Len())
}

func TestUploadAndGenerateCleansUp(t *testing.T) {
	ctx := context.Background()

	t.Run("no text", func(t *testing.T) {
		db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
		u := seedUser(t, db, models.UserStatusInactive, "")
		s := newUploads(db, obj, stubExtractor{text: "  "}, stubGenerator{})

		_, err := s.UploadAndGenerate(ctx, u.ID, pdfInput(""))
		assert.ErrorIs(t, err, core.ErrNoText)
		assert.Zero(t, obj.Len())
	})

	t.Run("extractor error", func(t *testing.T) {
		db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
		u := seedUser(t, db, models.UserStatusInactive, "")
		s := newUploads(db, obj, stubExtractor{err: core.ErrNoText}, stubGenerator{})

		_, err := s.UploadAndGenerate(ctx, u.ID, pdfInput(""))
		assert.ErrorIs(t, err, core.ErrNoText)
		assert.Zero(t, obj.Len())
	})

	t.Run("generation error", func(t *testing.T) {
		db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
		u := seedUser(t, db, models.UserStatusInactive, "")
		s := newUploads(db, obj, stubExtractor{text: "text"}, stubGenerator{err: core.ErrProvidersExhausted})

		_, err := s.UploadAndGenerate(ctx, u.ID, pdfInput(""))
		assert.ErrorIs(t, err, core.ErrProvidersExhausted)
		assert.Zero(t, obj.Len())
		assert.Empty(t, db.Quizzes)
	})

	t.Run("storage error", func(t *testing.T) {
		db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
		obj.UploadErr = errors.New("bucket gone")
		u := seedUser(t, db, models.UserStatusInactive, "")
		s := newUploads(db, obj, stubExtractor{text: "text"}, stubGenerator{})

		_, err := s.UploadAndGenerate(ctx, u.ID, pdfInput(""))
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "bucket gone"))
	})
}
