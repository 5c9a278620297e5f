package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
	"github.com/markdave123-py/Learnify/internal/services"
)

const minPasswordLen = 8

type AuthHandler struct {
	users  *services.UserService
	secret string
	ttl    time.Duration
}

func NewAuthHandler(users *services.UserService, secret string, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandler{users: users, secret: secret, ttl: ttl}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeMessage(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, core.ErrConflict) {
			writeMessage(w, http.StatusConflict, "user exists")
			return
		}
		writeError(w, r, err)
		return
	}

	h.respondWithToken(w, r, http.StatusCreated, user.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, core.ErrUnauthorized) {
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user.ID)
}

// Me returns the signed-in user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(r.Context(), uid)
	if errors.Is(err, core.ErrNotFound) {
		// token outlived its account
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, userID string) {
	token, err := generateJWT(h.secret, userID, h.ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Debug("issued token", "user_id", userID)
	writeJSON(w, status, map[string]string{"token": token})
}

// generateJWT creates a signed token with user ID claim
func generateJWT(secret, userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}
