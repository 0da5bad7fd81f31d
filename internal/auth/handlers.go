package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login
type SessionResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

// HandleSignup processes user registration
func HandleSignup(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.TrimSpace(req.Email)
		if email == "" || len(email) > 320 {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}
		if _, err := mail.ParseAddress(email); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}

		name := strings.TrimSpace(req.Name)
		if len(name) > 200 {
			apperrors.WriteBadRequest(w, r, "Name is too long")
			return
		}

		if len(req.Password) < 8 {
			apperrors.WriteBadRequest(w, r, "Password must be at least 8 characters")
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		userID := uuid.New()
		query := `
			INSERT INTO users (id, email, name, password_hash)
			VALUES ($1, $2, $3, $4)
		`

		_, err = pool.Exec(r.Context(), query, userID, email, name, passwordHash)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
				apperrors.WriteConflict(w, r, "Email address already registered")
				return
			}

			log.Error().Err(err).Str("email", email).Msg("Failed to insert user")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		if err := auditor.LogUserSignup(r.Context(), userID, email); err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to log audit event")
		}

		if err := issueSession(w, userID, jwtSecret, sessionDays, isProduction); err != nil {
			log.Error().Err(err).Msg("Failed to create session")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}

		log.Info().
			Str("user_id", userID.String()).
			Str("email", email).
			Msg("User signed up")

		apperrors.WriteSuccess(w, r, http.StatusCreated, SessionResponse{
			UserID: userID,
			Email:  email,
			Name:   name,
		})
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin processes user authentication
func HandleLogin(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.TrimSpace(req.Email)
		if email == "" || req.Password == "" {
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		var userID uuid.UUID
		var name string
		var status string
		var passwordHash string
		query := `SELECT id, name, status, password_hash FROM users WHERE LOWER(email) = LOWER($1)`

		err := pool.QueryRow(r.Context(), query, email).Scan(&userID, &name, &status, &passwordHash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Debug().Str("email", email).Msg("Login failed: user not found")
				apperrors.WriteUnauthorized(w, r, "Invalid credentials")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to query user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			if auditErr := auditor.LogLoginFailed(r.Context(), email, r.RemoteAddr); auditErr != nil {
				log.Error().Err(auditErr).Msg("Failed to log audit event")
			}
			log.Debug().Str("email", email).Msg("Login failed: wrong password")
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		if status != "ACTIVE" {
			apperrors.WriteForbidden(w, r, "Account is disabled")
			return
		}

		if err := issueSession(w, userID, jwtSecret, sessionDays, isProduction); err != nil {
			log.Error().Err(err).Msg("Failed to create session")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		log.Info().
			Str("user_id", userID.String()).
			Msg("User logged in")

		apperrors.WriteSuccess(w, r, http.StatusOK, SessionResponse{
			UserID: userID,
			Email:  email,
			Name:   name,
		})
	}
}

// HandleLogout clears the session and CSRF cookies
func HandleLogout(isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ClearSessionCookie(w)

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"logged_out": true,
		})
	}
}

// HandleMe returns the authenticated user's profile
func HandleMe(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())

		var resp SessionResponse
		resp.UserID = userID
		err := pool.QueryRow(r.Context(), `SELECT email, name FROM users WHERE id = $1`, userID).
			Scan(&resp.Email, &resp.Name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				apperrors.WriteNotFound(w, r, "User not found")
				return
			}
			log.Error().Err(err).Msg("Failed to load user")
			apperrors.WriteInternalError(w, r, "Failed to load user")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user": resp,
		})
	}
}

// issueSession creates the JWT session cookie and a fresh CSRF cookie.
func issueSession(w http.ResponseWriter, userID uuid.UUID, jwtSecret string, sessionDays int, isProduction bool) error {
	token, err := CreateToken(userID, jwtSecret, sessionDays)
	if err != nil {
		return err
	}
	SetSessionCookie(w, token, sessionDays, isProduction)

	csrfToken, err := GenerateCSRFToken()
	if err != nil {
		return err
	}
	SetCSRFCookie(w, csrfToken, isProduction)

	return nil
}
