// Package handler exposes the authentication endpoints under /api/auth.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vitalreg/internal/auth/models"
	"vitalreg/internal/auth/service"
	"vitalreg/internal/platform/middleware"
	"vitalreg/internal/transport/http/shared"
	"vitalreg/pkg/requestcontext"
)

// Service defines the auth operations the handler depends on.
type Service interface {
	Register(ctx context.Context, params service.RegisterParams) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.Session, error)
	StartSession(ctx context.Context, user *models.User) (*models.Session, error)
	Logout(ctx context.Context, sid string) error
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handler wires auth endpoints to the auth service.
type Handler struct {
	service Service
	cookie  middleware.CookieConfig
	logger  *slog.Logger
}

// New constructs an auth handler.
func New(service Service, cookie middleware.CookieConfig, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		cookie:  cookie,
		logger:  logger,
	}
}

// Register mounts the unauthenticated auth endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/login", h.HandleLogin)
	r.Post("/api/auth/register", h.HandleRegister)
	r.Post("/api/auth/logout", h.HandleLogout)
	r.Post("/api/auth/verify-email", h.HandleVerifyEmail)
	r.Post("/api/auth/resend-verification", h.HandleResendVerification)
	r.Post("/api/auth/forgot-password", h.HandleForgotPassword)
	r.Post("/api/auth/reset-password", h.HandleResetPassword)
}

// RegisterAuthed mounts the endpoints that require a resolved session.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Get("/api/auth/user", h.HandleCurrentUser)
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[LoginRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	user, session, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.InfoContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookie, session.SID)
	shared.WriteJSON(w, http.StatusOK, SessionResponse{User: fromUser(user)})
}

// HandleRegister handles POST /api/auth/register. A successful registration
// opens a session immediately; the account still needs email verification
// before the next login.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[RegisterRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.service.Register(ctx, service.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	session, err := h.service.StartSession(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "session after registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", user.ID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookie, session.SID)
	shared.WriteJSON(w, http.StatusOK, SessionResponse{User: fromUser(user)})
}

// HandleLogout handles POST /api/auth/logout. Logging out without a session
// still succeeds.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(h.cookie.Name); err == nil && cookie.Value != "" {
		if err := h.service.Logout(ctx, cookie.Value); err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	middleware.ClearSessionCookie(w, h.cookie)
	shared.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// HandleCurrentUser handles GET /api/auth/user.
func (h *Handler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.service.CurrentUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, fromUser(user))
}

// HandleVerifyEmail handles POST /api/auth/verify-email.
func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[VerifyEmailRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.VerifyEmail(ctx, req.Token); err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Email verified"})
}

// HandleResendVerification handles POST /api/auth/resend-verification.
func (h *Handler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[ResendVerificationRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.ResendVerification(ctx, req.Email); err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, MessageResponse{Message: "If the account exists, a verification email has been sent"})
}

// HandleForgotPassword handles POST /api/auth/forgot-password.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[ForgotPasswordRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.RequestPasswordReset(ctx, req.Email); err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, MessageResponse{Message: "If the account exists, a reset email has been sent"})
}

// HandleResetPassword handles POST /api/auth/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := shared.Decode[ResetPasswordRequest](r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.ResetPassword(ctx, req.Token, req.Password); err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}
