package models

import (
	"time"
)

const (
	UserStatusInactive  = "inactive"
	UserStatusActive    = "active"
	UserStatusCancelled = "cancelled"
)

const (
	KindQuiz    = "quiz"
	KindSummary = "summary"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CustomerID   string    `db:"customer_id" json:"customer_id,omitempty"` // payment provider customer
	PriceID      string    `db:"price_id" json:"price_id,omitempty"`
	Status       string    `db:"status" json:"status"` // inactive | active | cancelled
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Payment is one completed checkout.
type Payment struct {
	ID              string    `db:"id" json:"id"`
	Amount          int64     `db:"amount" json:"amount"` // minor units
	UserEmail       string    `db:"user_email" json:"user_email"`
	PriceID         string    `db:"price_id" json:"price_id"`
	Status          string    `db:"status" json:"status"` // paid | unpaid | pending | no_payment_required
	StripePaymentID string    `db:"stripe_payment_id" json:"stripe_payment_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Quiz is a generated flash-card deck.
type Quiz struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"userId"`
	Title      string     `db:"title" json:"title"`
	Summary    string     `db:"summary" json:"summary"`
	MinRead    *int       `db:"min_read" json:"minRead"`
	Complete   bool       `db:"complete" json:"complete"`
	SourceFile string     `db:"source_file" json:"sourceFile"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
	Questions  []Question `json:"questions,omitempty"`
}

type Question struct {
	ID       string `db:"id" json:"id"`
	QuizID   string `db:"quiz_id" json:"quizId"`
	Position int    `db:"position" json:"position"`
	Question string `db:"question" json:"question"`
	Answer   string `db:"answer" json:"answer"`
}

// Summary is a generated slide deck.
type Summary struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Title       string    `db:"title" json:"title"`
	Overview    *string   `db:"overview" json:"overview"`
	KeyTakeaway *string   `db:"key_takeaway" json:"keyTakeaway"`
	MinRead     *int      `db:"min_read" json:"minRead"`
	Complete    bool      `db:"complete" json:"complete"`
	SourceFile  string    `db:"source_file" json:"sourceFile"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	Slides      []Slide   `json:"slides,omitempty"`
}

type Slide struct {
	ID        string `db:"id" json:"id"`
	SummaryID string `db:"summary_id" json:"summaryId"`
	Position  int    `db:"position" json:"position"`
	Heading   string `db:"heading" json:"heading"`
	Content   string `db:"content" json:"content"`
}

// QuizProgress is the saved flash-card position of one user in one quiz.
type QuizProgress struct {
	QuizID        string    `db:"quiz_id" json:"quizId"`
	UserID        string    `db:"user_id" json:"userId"`
	CurrentIndex  int       `db:"current_index" json:"currentIndex"`
	KnownCards    []string  `db:"known_cards" json:"knownCards"`
	UnknownCards  []string  `db:"unknown_cards" json:"unknownCards"`
	HasCelebrated bool      `db:"has_celebrated" json:"hasCelebrated"`
	LastUpdated   time.Time `db:"last_updated" json:"lastUpdated"`
}
