package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Learnify/internal/config"
	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/models"
)

const uniqueViolation = "23505"

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	if user.Status == "" {
		user.Status = models.UserStatusInactive
	}
	const q = `
		INSERT INTO users (id, email, full_name, password_hash, customer_id, price_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q,
		user.ID, user.Email, user.FullName, user.PasswordHash, nullIfEmpty(user.CustomerID), nullIfEmpty(user.PriceID), user.Status,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapErr(err)
}

const userColumns = `id, email, full_name, password_hash, customer_id, price_id, status, created_at, updated_at`

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (c *DatabaseClient) getUser(ctx context.Context, q string, arg any) (*models.User, error) {
	var (
		u               models.User
		customer, price sql.NullString
	)
	err := c.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &customer, &price, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	u.CustomerID = customer.String
	u.PriceID = price.String
	return &u, nil
}

// UpsertUserByEmail creates the user or refreshes its billing fields.
// The password hash of an existing user is left untouched.
func (c *DatabaseClient) UpsertUserByEmail(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO users (id, email, full_name, password_hash, customer_id, price_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5, $6, now(), now())
		ON CONFLICT (email) DO UPDATE SET
			full_name   = COALESCE(NULLIF(EXCLUDED.full_name, ''), users.full_name),
			customer_id = EXCLUDED.customer_id,
			price_id    = EXCLUDED.price_id,
			status      = EXCLUDED.status,
			updated_at  = now()
		RETURNING id, created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q,
		user.ID, user.Email, user.FullName, nullIfEmpty(user.CustomerID), nullIfEmpty(user.PriceID), user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapErr(err)
}

func (c *DatabaseClient) UpdateUserStatusByCustomer(ctx context.Context, customerID, status string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE customer_id = $1`, customerID, status)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// SetUserPassword gives an account created by checkout its login credentials.
func (c *DatabaseClient) SetUserPassword(ctx context.Context, id, passwordHash, fullName string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, full_name = COALESCE(NULLIF($3, ''), full_name), updated_at = now()
		WHERE id = $1
	`, id, passwordHash, fullName)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// Payments

func (c *DatabaseClient) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p == nil {
		return errors.New("nil payment")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO payments (id, amount, user_email, price_id, status, stripe_payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, q, p.ID, p.Amount, p.UserEmail, p.PriceID, p.Status, p.StripePaymentID).Scan(&p.CreatedAt)
	return mapErr(err)
}

// Quizzes

// CreateQuiz inserts the quiz and its questions in a single transaction.
func (c *DatabaseClient) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if quiz == nil {
		return errors.New("nil quiz")
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const qQuiz = `
		INSERT INTO quizzes (id, user_id, title, summary, min_read, complete, source_file, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`
	if err := tx.QueryRowContext(ctx, qQuiz,
		quiz.ID, quiz.UserID, quiz.Title, quiz.Summary, quiz.MinRead, quiz.Complete, quiz.SourceFile,
	).Scan(&quiz.CreatedAt, &quiz.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO questions (id, quiz_id, position, question, answer) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range quiz.Questions {
		qn := &quiz.Questions[i]
		if qn.ID == "" {
			qn.ID = uuid.NewString()
		}
		qn.QuizID = quiz.ID
		if _, err := stmt.ExecContext(ctx, qn.ID, qn.QuizID, qn.Position, qn.Question, qn.Answer); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

const quizColumns = `id, user_id, title, summary, min_read, complete, source_file, created_at, updated_at`

func scanQuiz(row interface{ Scan(...any) error }) (*models.Quiz, error) {
	var (
		q       models.Quiz
		minRead sql.NullInt64
	)
	if err := row.Scan(&q.ID, &q.UserID, &q.Title, &q.Summary, &minRead, &q.Complete, &q.SourceFile, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.MinRead = intPtr(minRead)
	return &q, nil
}

func (c *DatabaseClient) GetQuizByID(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := scanQuiz(c.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, quiz_id, position, question, answer
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var qn models.Question
		if err := rows.Scan(&qn.ID, &qn.QuizID, &qn.Position, &qn.Question, &qn.Answer); err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, qn)
	}
	return quiz, rows.Err()
}

func (c *DatabaseClient) ListQuizzesByUser(ctx context.Context, userID string) ([]models.Quiz, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteQuiz(ctx context.Context, id, userID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (c *DatabaseClient) MarkQuizComplete(ctx context.Context, id, userID string) (*models.Quiz, error) {
	q, err := scanQuiz(c.db.QueryRowContext(ctx, `
		UPDATE quizzes SET complete = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+quizColumns, id, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	return q, nil
}

// Summaries

// CreateSummary inserts the summary and its slides in a single transaction.
func (c *DatabaseClient) CreateSummary(ctx context.Context, summary *models.Summary) error {
	if summary == nil {
		return errors.New("nil summary")
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const qSummary = `
		INSERT INTO summaries (id, user_id, title, overview, key_takeaway, min_read, complete, source_file, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`
	if err := tx.QueryRowContext(ctx, qSummary,
		summary.ID, summary.UserID, summary.Title, summary.Overview, summary.KeyTakeaway, summary.MinRead, summary.Complete, summary.SourceFile,
	).Scan(&summary.CreatedAt, &summary.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO slides (id, summary_id, position, heading, content) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range summary.Slides {
		sl := &summary.Slides[i]
		if sl.ID == "" {
			sl.ID = uuid.NewString()
		}
		sl.SummaryID = summary.ID
		if _, err := stmt.ExecContext(ctx, sl.ID, sl.SummaryID, sl.Position, sl.Heading, sl.Content); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

const summaryColumns = `id, user_id, title, overview, key_takeaway, min_read, complete, source_file, created_at, updated_at`

func scanSummary(row interface{ Scan(...any) error }) (*models.Summary, error) {
	var (
		s                  models.Summary
		overview, takeaway sql.NullString
		minRead            sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &overview, &takeaway, &minRead, &s.Complete, &s.SourceFile, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Overview = strPtr(overview)
	s.KeyTakeaway = strPtr(takeaway)
	s.MinRead = intPtr(minRead)
	return &s, nil
}

func (c *DatabaseClient) GetSummaryByID(ctx context.Context, id string) (*models.Summary, error) {
	s, err := scanSummary(c.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, summary_id, position, heading, content
		FROM slides
		WHERE summary_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sl models.Slide
		if err := rows.Scan(&sl.ID, &sl.SummaryID, &sl.Position, &sl.Heading, &sl.Content); err != nil {
			return nil, err
		}
		s.Slides = append(s.Slides, sl)
	}
	return s, rows.Err()
}

func (c *DatabaseClient) ListSummariesByUser(ctx context.Context, userID string) ([]models.Summary, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Summary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteSummary(ctx context.Context, id, userID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (c *DatabaseClient) MarkSummaryComplete(ctx context.Context, id, userID string) (*models.Summary, error) {
	s, err := scanSummary(c.db.QueryRowContext(ctx, `
		UPDATE summaries SET complete = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+summaryColumns, id, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (c *DatabaseClient) CountGenerationsSince(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const q = `
		SELECT
			(SELECT count(*) FROM quizzes   WHERE user_id = $1 AND created_at >= $2 AND created_at < $3) +
			(SELECT count(*) FROM summaries WHERE user_id = $1 AND created_at >= $2 AND created_at < $3)
	`
	var n int
	if err := c.db.QueryRowContext(ctx, q, userID, from, to).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Quiz progress

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *DatabaseClient) GetQuizProgress(ctx context.Context, quizID, userID string) (*models.QuizProgress, error) {
	return getProgress(ctx, c.db, quizID, userID, false)
}

// UpdateQuizProgress serialises writers of one quiz/user pair with a transaction
// scoped advisory lock, which also covers the case where no row exists yet.
func (c *DatabaseClient) UpdateQuizProgress(ctx context.Context, quizID, userID string, fn core.ProgressUpdate) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, progressLockKey(quizID, userID)); err != nil {
		return fmt.Errorf("lock progress: %w", err)
	}

	stored, err := getProgress(ctx, tx, quizID, userID, true)
	if errors.Is(err, core.ErrNotFound) {
		stored = nil
	} else if err != nil {
		return err
	}

	next, err := fn(stored)
	if err != nil {
		return err
	}

	if next == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_progress WHERE quiz_id = $1 AND user_id = $2`, quizID, userID); err != nil {
			return err
		}
	} else {
		next.QuizID, next.UserID = quizID, userID
		if err := saveProgress(ctx, tx, next); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteQuizProgress(ctx context.Context, quizID, userID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM quiz_progress WHERE quiz_id = $1 AND user_id = $2`, quizID, userID)
	return err
}

func progressLockKey(quizID, userID string) string {
	return "quiz_progress:" + quizID + ":" + userID
}

func getProgress(ctx context.Context, q execQuerier, quizID, userID string, forUpdate bool) (*models.QuizProgress, error) {
	query := `
		SELECT quiz_id, user_id, current_index, known_cards, unknown_cards, has_celebrated, last_updated
		FROM quiz_progress
		WHERE quiz_id = $1 AND user_id = $2
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		p              models.QuizProgress
		known, unknown []byte
	)
	err := q.QueryRowContext(ctx, query, quizID, userID).Scan(
		&p.QuizID, &p.UserID, &p.CurrentIndex, &known, &unknown, &p.HasCelebrated, &p.LastUpdated,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal(known, &p.KnownCards); err != nil {
		return nil, fmt.Errorf("decode known cards: %w", err)
	}
	if err := json.Unmarshal(unknown, &p.UnknownCards); err != nil {
		return nil, fmt.Errorf("decode unknown cards: %w", err)
	}
	return &p, nil
}

func saveProgress(ctx context.Context, q execQuerier, p *models.QuizProgress) error {
	known, err := json.Marshal(nonNil(p.KnownCards))
	if err != nil {
		return err
	}
	unknown, err := json.Marshal(nonNil(p.UnknownCards))
	if err != nil {
		return err
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now()
	}
	const query = `
		INSERT INTO quiz_progress (quiz_id, user_id, current_index, known_cards, unknown_cards, has_celebrated, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (quiz_id, user_id) DO UPDATE SET
			current_index  = EXCLUDED.current_index,
			known_cards    = EXCLUDED.known_cards,
			unknown_cards  = EXCLUDED.unknown_cards,
			has_celebrated = EXCLUDED.has_celebrated,
			last_updated   = EXCLUDED.last_updated
	`
	_, err = q.ExecContext(ctx, query, p.QuizID, p.UserID, p.CurrentIndex, string(known), string(unknown), p.HasCelebrated, p.LastUpdated)
	return err
}

// helpers

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
