// Package service implements credential management and session-based
// authentication: registration with email verification, login with a
// pre-authorized identity allow-list, durable sessions with rolling expiry,
// and single-use password reset tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vitalreg/internal/audit"
	"vitalreg/internal/auth/cache"
	"vitalreg/internal/auth/lockout"
	"vitalreg/internal/auth/models"
	"vitalreg/internal/auth/store"
	"vitalreg/internal/notify"
	"vitalreg/internal/platform/metrics"
	"vitalreg/internal/platform/middleware"
	dErrors "vitalreg/pkg/domain-errors"
	emailutil "vitalreg/pkg/email"
	"vitalreg/pkg/platform/sentinel"
	"vitalreg/pkg/requestcontext"
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

// Service provides authentication operations on top of the user and session
// stores.
type Service struct {
	users      store.UserStore
	sessions   store.SessionStore
	identities cache.IdentityCache
	notifier   notify.Notifier
	publisher  *audit.Publisher
	metrics    *metrics.Metrics
	lockouts   *lockout.Service
	logger     *slog.Logger

	sessionTTL time.Duration
	// preauthorized maps lowercase email to a fixed role. Identities on
	// this list skip password verification; the list is consulted before
	// the generic credential path so the trust boundary stays visible.
	preauthorized map[string]models.Role

	now func() time.Time
}

// Config carries the service dependencies.
type Config struct {
	Users         store.UserStore
	Sessions      store.SessionStore
	Identities    cache.IdentityCache
	Notifier      notify.Notifier
	Publisher     *audit.Publisher
	Metrics       *metrics.Metrics
	// Lockouts is optional; when nil, failed logins are not throttled.
	Lockouts      *lockout.Service
	Logger        *slog.Logger
	SessionTTL    time.Duration
	Preauthorized map[string]string
}

// New constructs the auth service.
func New(cfg Config) *Service {
	preauth := make(map[string]models.Role, len(cfg.Preauthorized))
	for email, role := range cfg.Preauthorized {
		if models.ValidRole(role) {
			preauth[emailutil.Normalize(email)] = models.Role(role)
		}
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		users:         cfg.Users,
		sessions:      cfg.Sessions,
		identities:    cfg.Identities,
		notifier:      notifier,
		publisher:     cfg.Publisher,
		metrics:       cfg.Metrics,
		lockouts:      cfg.Lockouts,
		logger:        cfg.Logger,
		sessionTTL:    sessionTTL,
		preauthorized: preauth,
		now:           time.Now,
	}
}

// RegisterParams is the input to Register.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Register creates a new unverified user and triggers a verification email.
// Notification failure is logged, never surfaced: the account exists either
// way and verification can be re-requested.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	role := models.RolePublic
	if params.Role != "" {
		if !models.ValidRole(params.Role) {
			return nil, dErrors.NewValidation("Invalid role", map[string]string{"role": "must be one of public, health_worker, registrar, admin"})
		}
		role = models.Role(params.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:                      uuid.NewString(),
		Email:                   emailutil.Normalize(params.Email),
		PasswordHash:            string(hash),
		FirstName:               params.FirstName,
		LastName:                params.LastName,
		Role:                    role,
		VerificationToken:       uuid.NewString(),
		VerificationTokenExpiry: now.Add(verificationTokenTTL),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.sendVerification(ctx, user.Email, user.VerificationToken)
	s.metrics.IncrementUsersCreated()
	s.publish(ctx, user.ID, audit.ActionUserRegistered, user.Email, "")

	return user, nil
}

// Login authenticates the credentials and opens a session. Pre-authorized
// identities bypass password verification and receive their fixed role; all
// other callers go through the generic path, which reports the same failure
// for unknown email and wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	normalized := emailutil.Normalize(email)

	var user *models.User
	if role, ok := s.preauthorized[normalized]; ok {
		provisioned, err := s.provisionPreauthorized(ctx, normalized, role)
		if err != nil {
			s.metrics.ObserveLogin("error")
			return nil, nil, err
		}
		user = provisioned
	} else {
		if s.lockouts != nil {
			if err := s.lockouts.Check(ctx, normalized); err != nil {
				s.metrics.ObserveLogin("locked")
				return nil, nil, err
			}
		}
		validated, err := s.validateCredentials(ctx, normalized, password)
		if err != nil {
			if s.lockouts != nil {
				s.lockouts.RecordFailure(ctx, normalized)
			}
			s.metrics.ObserveLogin("invalid_credentials")
			return nil, nil, err
		}
		if !validated.Verified {
			s.metrics.ObserveLogin("unverified")
			return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "Email not verified.")
		}
		if s.lockouts != nil {
			s.lockouts.Clear(ctx, normalized)
		}
		user = validated
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		s.metrics.ObserveLogin("error")
		return nil, nil, err
	}

	s.metrics.ObserveLogin("success")
	s.publish(ctx, user.ID, audit.ActionUserLoggedIn, user.Email, string(user.Role))
	return user, session, nil
}

// StartSession opens a session for an already-authenticated user, used after
// registration so the caller does not have to log in again.
func (s *Service) StartSession(ctx context.Context, user *models.User) (*models.Session, error) {
	return s.startSession(ctx, user)
}

// Logout destroys the session and evicts its cached identity. Unknown
// sessions are treated as already logged out.
func (s *Service) Logout(ctx context.Context, sid string) error {
	if s.identities != nil {
		s.identities.Delete(ctx, sid)
	}
	if err := s.sessions.Delete(ctx, sid); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	s.publish(ctx, requestcontext.UserID(ctx), audit.ActionUserLoggedOut, "", "")
	return nil
}

// ResolveSession maps a sid to the identity behind it, touching the session
// so the expiry keeps rolling. A short-TTL read-through cache absorbs the
// per-request store round-trip; misses always re-resolve from storage.
func (s *Service) ResolveSession(ctx context.Context, sid string) (middleware.Identity, error) {
	if s.identities != nil {
		if identity, ok := s.identities.Get(ctx, sid); ok {
			return identity, nil
		}
	}

	session, err := s.sessions.Find(ctx, sid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return middleware.Identity{}, sentinel.ErrNotFound
		}
		return middleware.Identity{}, fmt.Errorf("find session: %w", err)
	}

	now := s.now().UTC()
	if session.Expired(now) {
		_ = s.sessions.Delete(ctx, sid)
		return middleware.Identity{}, sentinel.ErrExpired
	}

	if err := s.sessions.Touch(ctx, sid, now.Add(s.sessionTTL)); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "session touch failed", "error", err)
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			_ = s.sessions.Delete(ctx, sid)
			return middleware.Identity{}, sentinel.ErrNotFound
		}
		return middleware.Identity{}, fmt.Errorf("resolve session user: %w", err)
	}

	identity := middleware.Identity{UserID: user.ID, Role: string(user.Role)}
	if s.identities != nil {
		s.identities.Set(ctx, sid, identity)
	}
	return identity, nil
}

// CurrentUser returns the user behind an authenticated request.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
		}
		return nil, fmt.Errorf("find current user: %w", err)
	}
	return user, nil
}

// VerifyEmail consumes a verification token: marks the user verified and
// clears the token so it cannot be replayed.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.FindByVerificationToken(ctx, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, "Invalid or expired verification token")
		}
		return fmt.Errorf("find verification token: %w", err)
	}

	user.Verified = true
	user.VerificationToken = ""
	user.VerificationTokenExpiry = time.Time{}
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}

	s.publish(ctx, user.ID, audit.ActionEmailVerified, user.Email, "")
	return nil
}

// ResendVerification issues a fresh verification token. Unknown and
// already-verified emails no-op silently so the endpoint does not leak
// account existence.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, emailutil.Normalize(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find user for resend: %w", err)
	}
	if user.Verified {
		return nil
	}

	user.VerificationToken = uuid.NewString()
	user.VerificationTokenExpiry = s.now().UTC().Add(verificationTokenTTL)
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("refresh verification token: %w", err)
	}

	s.sendVerification(ctx, user.Email, user.VerificationToken)
	return nil
}

// RequestPasswordReset issues a single-use reset token with a one-hour
// expiry. Unknown emails no-op silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, emailutil.Normalize(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find user for reset: %w", err)
	}

	user.ResetToken = uuid.NewString()
	user.ResetTokenExpiry = s.now().UTC().Add(resetTokenTTL)
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, user.ResetToken); err != nil {
		s.logger.ErrorContext(ctx, "send password reset email", "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.users.FindByResetToken(ctx, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, "Invalid or expired reset token")
		}
		return fmt.Errorf("find reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.ResetToken = ""
	user.ResetTokenExpiry = time.Time{}
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("replace password: %w", err)
	}

	s.publish(ctx, user.ID, audit.ActionPasswordReset, user.Email, "")
	return nil
}

// RunSessionPruner deletes expired sessions on the given interval until ctx
// is cancelled.
func (s *Service) RunSessionPruner(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pruned, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
			if err != nil {
				s.logger.ErrorContext(ctx, "prune expired sessions", "error", err)
				continue
			}
			if pruned > 0 {
				s.logger.InfoContext(ctx, "pruned expired sessions", "count", pruned)
			}
		}
	}
}

func (s *Service) validateCredentials(ctx context.Context, email, password string) (*models.User, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "Invalid email or password.")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, invalid
	}
	return user, nil
}

// provisionPreauthorized ensures the allow-listed identity exists with its
// fixed role and verified flag, creating or correcting the record as needed.
func (s *Service) provisionPreauthorized(ctx context.Context, email string, role models.Role) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("find preauthorized user: %w", err)
	}

	now := s.now().UTC()
	if user == nil {
		first, last := emailutil.DeriveNameFromEmail(email)
		user = &models.User{
			ID:        uuid.NewString(),
			Email:     email,
			FirstName: first,
			LastName:  last,
			CreatedAt: now,
		}
	}
	if user.Role != role || !user.Verified {
		user.Role = role
		user.Verified = true
		user.UpdatedAt = now
		if err := s.users.Upsert(ctx, user); err != nil {
			return nil, fmt.Errorf("provision preauthorized user: %w", err)
		}
	}
	return user, nil
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		SID:       uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if s.identities != nil {
		s.identities.Set(ctx, session.SID, middleware.Identity{UserID: user.ID, Role: string(user.Role)})
	}
	return session, nil
}

func (s *Service) sendVerification(ctx context.Context, email, token string) {
	if err := s.notifier.SendVerificationEmail(ctx, email, token); err != nil {
		s.logger.ErrorContext(ctx, "send verification email", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, actorID string, action audit.Action, subject, detail string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(audit.Event{
		ActorID:   actorID,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
	})
}
