package handlers

import (
	"encoding/json"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/owasp-blt/blt-gateway/internal/api"
	"github.com/owasp-blt/blt-gateway/internal/auth"
	"github.com/owasp-blt/blt-gateway/internal/email"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/router"
	"github.com/owasp-blt/blt-gateway/internal/store"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

// AuthHandler serves account signup, signin, and email verification.
type AuthHandler struct {
	users      store.UserStore
	tokens     *auth.TokenIssuer
	mail       email.Sender
	logger     observability.Logger
	verifyBase string
}

// Register wires the auth routes.
func (h *AuthHandler) Register(r *router.Router) error {
	if err := r.Post("/auth/signup", h.Signup); err != nil {
		return err
	}
	if err := r.Post("/auth/signin", h.Signin); err != nil {
		return err
	}
	return r.Get("/auth/verify-email", h.VerifyEmail)
}

// signupRequest is the POST /auth/signup payload.
type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signupResponse hides the password hash and verification token.
type signupResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Signup serves POST /auth/signup.
func (h *AuthHandler) Signup(rc *router.Context) (*router.Response, error) {
	var req signupRequest
	if err := json.NewDecoder(rc.Request.Body).Decode(&req); err != nil {
		return api.BadRequest("invalid JSON body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return api.BadRequest("username, email, and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return api.BadRequest("invalid email address")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return api.BadRequest("password must be at least 8 characters")
		}
		return nil, err
	}

	verifyToken := uuid.NewString()
	user, err := h.users.CreateUser(rc.Request.Context(), req.Username, req.Email, hash, verifyToken)
	if err != nil {
		if errors.Is(err, util.ErrInvalidInput) {
			return api.BadRequest(err.Error())
		}
		return nil, err
	}

	// Verification mail is best effort; account creation already
	// succeeded.
	if h.mail != nil {
		verifyURL := strings.TrimRight(h.verifyBase, "/") + "/auth/verify-email?token=" + verifyToken
		msg := email.VerificationMessage(user.Email, user.Username, verifyURL)
		if err := h.mail.Send(rc.Request.Context(), msg); err != nil {
			h.logger.WithContext(rc.Request.Context()).Warn("verification email failed",
				observability.Int64("user_id", user.ID),
				observability.Error(err))
		}
	}

	h.logger.WithContext(rc.Request.Context()).Info("user signed up",
		observability.Int64("user_id", user.ID),
		observability.String("username", user.Username))

	return api.Created(signupResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

// signinRequest is the POST /auth/signin payload. Login accepts a
// username or an email address.
type signinRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// signinResponse carries the session token.
type signinResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Signin serves POST /auth/signin.
func (h *AuthHandler) Signin(rc *router.Context) (*router.Response, error) {
	var req signinRequest
	if err := json.NewDecoder(rc.Request.Body).Decode(&req); err != nil {
		return api.BadRequest("invalid JSON body")
	}
	if req.Login == "" || req.Password == "" {
		return api.BadRequest("login and password are required")
	}

	user, err := h.users.GetUserByLogin(rc.Request.Context(), req.Login)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			// Same response as a bad password so logins cannot be
			// enumerated.
			return api.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		return api.Unauthorized("invalid credentials")
	}

	token, err := h.tokens.Issue(auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return nil, err
	}

	return api.OK(signinResponse{Token: token, UserID: user.ID, Username: user.Username})
}

// VerifyEmail serves GET /auth/verify-email.
func (h *AuthHandler) VerifyEmail(rc *router.Context) (*router.Response, error) {
	token := rc.QueryParams["token"]
	if token == "" {
		return api.BadRequest("token is required")
	}

	user, err := h.users.VerifyEmail(rc.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrNotFound):
			return api.NotFound("invalid or expired verification token")
		case errors.Is(err, util.ErrInvalidInput):
			return api.BadRequest(err.Error())
		}
		return nil, err
	}

	if h.mail != nil {
		if err := h.mail.Send(rc.Request.Context(), email.WelcomeMessage(user.Email, user.Username)); err != nil {
			h.logger.WithContext(rc.Request.Context()).Warn("welcome email failed",
				observability.Int64("user_id", user.ID),
				observability.Error(err))
		}
	}

	return api.OK(map[string]interface{}{
		"verified": true,
		"user_id":  user.ID,
	})
}
