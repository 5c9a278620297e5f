package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/markdave123-py/Learnify/internal/api/middlewares"
	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/core/billing"
	"github.com/markdave123-py/Learnify/internal/core/generation_engine"
	"github.com/markdave123-py/Learnify/internal/models"
	"github.com/markdave123-py/Learnify/internal/services"
	"github.com/markdave123-py/Learnify/internal/testutil"
)

const testSecret = "handler-secret"

type stubExtractor struct{}

func (stubExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	return "some extracted text", nil
}

type stubGenerator struct{}

func (stubGenerator) GenerateQuiz(ctx context.Context, text string) (*models.Quiz, error) {
	return &models.Quiz{Title: "Cells", Questions: []models.Question{
		{Question: "A?", Answer: "a"},
		{Question: "B?", Answer: "b"},
	}}, nil
}

func (stubGenerator) GenerateSummary(ctx context.Context, text string) (*models.Summary, error) {
	return &models.Summary{Title: "Water", Slides: []models.Slide{{Heading: "Rain", Content: "- falls"}}}, nil
}

type env struct {
	db     *testutil.MemDB
	obj    *testutil.MemObjects
	router http.Handler
}

func newEnv(t *testing.T, maxUpload int64) *env {
	t.Helper()
	return newEnvWithExtractor(t, maxUpload, stubExtractor{})
}

func newEnvWithExtractor(t *testing.T, maxUpload int64, extractor core.DocumentExtractor) *env {
	t.Helper()
	db, obj := testutil.NewMemDB(), testutil.NewMemObjects()
	catalog := billing.NewCatalog("price_basic", "price_pro", 5, 1000)
	users := services.NewUserService(db, catalog, false)

	auth := NewAuthHandler(users, testSecret, time.Hour)
	upload := NewUploadHandler(services.NewUploadService(db, obj, extractor, stubGenerator{}, users), maxUpload)
	library := NewLibraryHandler(services.NewLibraryService(db, obj))
	study := NewStudyHandler(services.NewStudyService(db))
	bill := NewBillingHandler(catalog, billing.NewWebhookProcessor(nil, db, "whsec_test"), users)

	r := chi.NewRouter()
	r.Post("/api/signup", auth.Signup)
	r.Post("/api/login", auth.Login)
	r.Get("/api/plans", bill.Plans)
	r.Post("/api/webhooks/stripe", bill.StripeWebhook)
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(testSecret))
		r.Post("/api/upload", upload.Upload)
		r.Get("/api/me", auth.Me)
		r.Get("/api/limits", bill.Limits)
		r.Get("/api/quizzes/{id}/source", library.QuizSource)
		r.Get("/api/summaries/{id}/source", library.SummarySource)
		r.Get("/api/quizzes", library.GetQuizzes)
		r.Get("/api/allQuizzes", library.ListQuizzes)
		r.Delete("/api/quizzes/{id}", library.DeleteQuiz)
		r.Get("/api/quizzes/{id}/progress", study.GetProgress)
		r.Post("/api/quizzes/{id}/progress", study.PostProgress)
		r.Get("/api/summaries", library.GetSummaries)
		r.Delete("/api/summaries/{id}", library.DeleteSummary)
		r.Get("/api/dashboard", library.Dashboard)
		r.Post("/api/complete", library.Complete)
	})
	return &env{db: db, obj: obj, router: r}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) upload(t *testing.T, token, filename string, data []byte, kind string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, _ = fw.Write(data)
	}
	if kind != "" {
		require.NoError(t, mw.WriteField("kind", kind))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func signup(t *testing.T, e *env, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/signup", "", map[string]string{"email": email, "password": "correct horse", "full_name": "Test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]string](t, rec)["token"]
}

func TestAuth(t *testing.T) {
	e := newEnv(t, 1<<20)

	token := signup(t, e, "ada@example.com")
	assert.NotEmpty(t, token)

	rec := e.do(t, http.MethodPost, "/api/signup", "", map[string]string{"email": "ada@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/signup", "", map[string]string{"email": "not-an-email", "password": "correct horse"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/signup", "", map[string]string{"email": "b@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["token"])

	rec = e.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/limits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "ada@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	ghost, err := generateJWT(testSecret, "deleted-user", time.Hour)
	require.NoError(t, err)
	rec = e.do(t, http.MethodGet, "/api/me", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadAndStudy(t *testing.T) {
	e := newEnv(t, 1<<20)
	token := signup(t, e, "ada@example.com")

	rec := e.upload(t, token, "notes.pdf", []byte("%PDF-1.4 fake"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "quiz", res["kind"])
	assert.Equal(t, "notes.pdf", res["filename"])
	quizID := res["id"].(string)

	rec = e.do(t, http.MethodGet, "/api/quizzes?id="+quizID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	quiz := decode[models.Quiz](t, rec)
	assert.Equal(t, "Cells", quiz.Title)
	assert.Len(t, quiz.Questions, 2)

	rec = e.do(t, http.MethodGet, "/api/allQuizzes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Quiz](t, rec), 1)

	rec = e.do(t, http.MethodPost, "/api/quizzes/"+quizID+"/progress", token, map[string]string{"action": "known"})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[services.ProgressView](t, rec)
	assert.Equal(t, 1, v.CurrentIndex)
	assert.True(t, v.Celebrate)

	rec = e.do(t, http.MethodPost, "/api/quizzes/"+quizID+"/progress", token, map[string]string{"action": "unknown"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[services.ProgressView](t, rec).Complete)

	rec = e.do(t, http.MethodGet, "/api/quizzes/"+quizID+"/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decode[services.ProgressView](t, rec).Percent)

	rec = e.do(t, http.MethodPost, "/api/quizzes/"+quizID+"/progress", token, map[string]string{"action": "dance"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/limits", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	allowance := decode[services.Allowance](t, rec)
	assert.Equal(t, 1, allowance.Used)
	assert.Equal(t, 5, allowance.Limit)

	other := signup(t, e, "eve@example.com")
	rec = e.do(t, http.MethodGet, "/api/quizzes?id="+quizID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, http.MethodDelete, "/api/quizzes/"+quizID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/quizzes/"+quizID+"/source", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "notes.pdf")

	rec = e.do(t, http.MethodGet, "/api/quizzes/"+quizID+"/source", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/quizzes/"+quizID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, e.obj.Len())
}

func TestUploadSummaryAndComplete(t *testing.T) {
	e := newEnv(t, 1<<20)
	token := signup(t, e, "ada@example.com")

	rec := e.upload(t, token, "notes.pdf", []byte("%PDF"), "summary")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = e.do(t, http.MethodGet, "/api/summaries?id="+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.Summary](t, rec).Slides, 1)

	rec = e.do(t, http.MethodGet, "/api/dashboard?feature=summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[map[string]any](t, rec)
	assert.Equal(t, "summary", dash["feature"])
	assert.Len(t, dash["items"], 1)

	rec = e.do(t, http.MethodGet, "/api/dashboard?feature=video", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/complete", token, map[string]string{"id": id, "type": "summary"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Summary](t, rec).Complete)

	rec = e.do(t, http.MethodPost, "/api/complete", token, map[string]string{"type": "quiz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/complete", token, map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/summaries/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUploadRejects(t *testing.T) {
	e := newEnv(t, 2048)
	token := signup(t, e, "ada@example.com")

	rec := e.upload(t, token, "notes.txt", []byte("hello"), "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = e.upload(t, token, "", nil, "quiz")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.upload(t, token, "big.pdf", bytes.Repeat([]byte("x"), 8192), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = e.upload(t, token, "notes.pdf", []byte("%PDF"), "podcast")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 5; i++ {
		rec = e.upload(t, token, fmt.Sprintf("n%d.pdf", i), []byte("%PDF"), "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = e.upload(t, token, "more.pdf", []byte("%PDF"), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUploadSizeLimit(t *testing.T) {
	e := newEnv(t, 2048)
	token := signup(t, e, "ada@example.com")

	rec := e.upload(t, token, "exact.pdf", bytes.Repeat([]byte("x"), 2048), "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.upload(t, token, "over.pdf", bytes.Repeat([]byte("x"), 2049), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadUnreadablePDF(t *testing.T) {
	e := newEnvWithExtractor(t, 1<<20, generation_engine.NewPDFExtractor(false))
	token := signup(t, e, "ada@example.com")

	rec := e.upload(t, token, "notes.pdf", []byte("this is not really a pdf"), "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
	assert.Zero(t, e.obj.Len())
	assert.Empty(t, e.db.Quizzes)
}

func TestBillingEndpoints(t *testing.T) {
	e := newEnv(t, 1<<20)

	rec := e.do(t, http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plans := decode[[]billing.Plan](t, rec)
	require.Len(t, plans, 2)
	assert.Equal(t, "pro", plans[1].ID)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unconfigured := NewBillingHandler(billing.NewCatalog("", "", 5, 1000), nil, nil)
	rec = httptest.NewRecorder()
	unconfigured.StripeWebhook(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidInput, http.StatusBadRequest},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{billing.ErrInvalidSignature, http.StatusBadRequest},
		{core.ErrSubscriptionRequired, http.StatusPaymentRequired},
		{fmt.Errorf("wrapped: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrConflict, http.StatusConflict},
		{core.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{core.ErrNoText, http.StatusUnprocessableEntity},
		{core.ErrNothingGenerated, http.StatusUnprocessableEntity},
		{core.ErrUploadLimit, http.StatusTooManyRequests},
		{core.ErrProvidersExhausted, http.StatusBadGateway},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
