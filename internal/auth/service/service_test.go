package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"vitalreg/internal/auth/cache"
	"vitalreg/internal/auth/lockout"
	"vitalreg/internal/auth/models"
	sessionstore "vitalreg/internal/auth/store/session"
	userstore "vitalreg/internal/auth/store/user"
	dErrors "vitalreg/pkg/domain-errors"
	"vitalreg/pkg/platform/sentinel"
)

type fakeNotifier struct {
	mu            sync.Mutex
	verifications map[string]string
	resets        map[string]string
	fail          bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		verifications: make(map[string]string),
		resets:        make(map[string]string),
	}
}

func (f *fakeNotifier) SendVerificationEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("provider down")
	}
	f.verifications[to] = token
	return nil
}

func (f *fakeNotifier) SendPasswordResetEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("provider down")
	}
	f.resets[to] = token
	return nil
}

func (f *fakeNotifier) verificationToken(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifications[to]
}

func (f *fakeNotifier) resetToken(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[to]
}

type AuthServiceSuite struct {
	suite.Suite
	users    *userstore.InMemory
	sessions *sessionstore.InMemory
	notifier *fakeNotifier
	service  *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.users = userstore.NewInMemory()
	s.sessions = sessionstore.NewInMemory()
	s.notifier = newFakeNotifier()
	s.service = New(Config{
		Users:      s.users,
		Sessions:   s.sessions,
		Identities: cache.NewMemory(5 * time.Minute),
		Notifier:   s.notifier,
		Lockouts: lockout.New(lockout.Config{
			Store:       lockout.NewInMemoryStore(),
			Logger:      slog.Default(),
			MaxAttempts: 3,
		}),
		Logger:     slog.Default(),
		SessionTTL: 24 * time.Hour,
		Preauthorized: map[string]string{
			"ops.registrar@registry.gov.gh": "registrar",
		},
	})
}

func (s *AuthServiceSuite) register(email string) *models.User {
	user, err := s.service.Register(context.Background(), RegisterParams{
		Email:     email,
		Password:  "correct horse battery",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	s.Require().NoError(err)
	return user
}

func (s *AuthServiceSuite) registerVerified(email string) *models.User {
	user := s.register(email)
	s.Require().NoError(s.service.VerifyEmail(context.Background(), s.notifier.verificationToken(email)))
	return user
}

func (s *AuthServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("creates unverified user with hashed password", func() {
		user := s.register("new.user@example.com")

		s.False(user.Verified)
		s.Equal(models.RolePublic, user.Role)
		s.NotEqual("correct horse battery", user.PasswordHash)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse battery")))
	})

	s.Run("sends a verification email", func() {
		user := s.register("mail.me@example.com")
		s.Equal(user.VerificationToken, s.notifier.verificationToken("mail.me@example.com"))
	})

	s.Run("rejects duplicate email with conflict", func() {
		s.register("taken@example.com")
		_, err := s.service.Register(ctx, RegisterParams{Email: "taken@example.com", Password: "another password"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects unknown role", func() {
		_, err := s.service.Register(ctx, RegisterParams{Email: "r@example.com", Password: "pw12345678", Role: "superuser"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("registration survives a notification outage", func() {
		s.notifier.fail = true
		defer func() { s.notifier.fail = false }()

		user, err := s.service.Register(ctx, RegisterParams{Email: "offline@example.com", Password: "pw12345678"})
		s.Require().NoError(err)
		s.NotEmpty(user.ID)
	})
}

func (s *AuthServiceSuite) TestLogin() {
	ctx := context.Background()

	s.Run("verified user logs in and receives a session", func() {
		s.registerVerified("login.ok@example.com")

		user, session, err := s.service.Login(ctx, "login.ok@example.com", "correct horse battery")
		s.Require().NoError(err)
		s.Equal(user.ID, session.UserID)

		stored, err := s.sessions.Find(ctx, session.SID)
		s.Require().NoError(err)
		s.Equal(user.ID, stored.UserID)
	})

	s.Run("unverified user is rejected with a distinct message", func() {
		s.register("unverified@example.com")

		_, _, err := s.service.Login(ctx, "unverified@example.com", "correct horse battery")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "not verified")
	})

	s.Run("wrong password and unknown email produce the same message", func() {
		s.registerVerified("known@example.com")

		_, _, errWrongPassword := s.service.Login(ctx, "known@example.com", "wrong password")
		_, _, errUnknownEmail := s.service.Login(ctx, "never.registered@example.com", "whatever pw")

		s.Require().Error(errWrongPassword)
		s.Require().Error(errUnknownEmail)
		s.Equal(errWrongPassword.Error(), errUnknownEmail.Error())
	})

	s.Run("email comparison is case-insensitive", func() {
		s.registerVerified("cased@example.com")

		_, _, err := s.service.Login(ctx, "CASED@Example.COM", "correct horse battery")
		s.Require().NoError(err)
	})
}

func (s *AuthServiceSuite) TestLoginLockout() {
	ctx := context.Background()

	s.Run("repeated failures lock the account even for the right password", func() {
		s.registerVerified("target@example.com")

		for i := 0; i < 3; i++ {
			_, _, err := s.service.Login(ctx, "target@example.com", "guess")
			s.Require().Error(err)
		}

		_, _, err := s.service.Login(ctx, "target@example.com", "correct horse battery")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	})

	s.Run("successful login clears earlier failures", func() {
		s.registerVerified("resilient@example.com")

		for i := 0; i < 2; i++ {
			_, _, err := s.service.Login(ctx, "resilient@example.com", "guess")
			s.Require().Error(err)
		}
		_, _, err := s.service.Login(ctx, "resilient@example.com", "correct horse battery")
		s.Require().NoError(err)

		// The counter restarted, so two more misses stay below the limit.
		for i := 0; i < 2; i++ {
			_, _, err := s.service.Login(ctx, "resilient@example.com", "guess")
			s.Require().Error(err)
		}
		_, _, err = s.service.Login(ctx, "resilient@example.com", "correct horse battery")
		s.Require().NoError(err)
	})
}

func (s *AuthServiceSuite) TestPreauthorizedLogin() {
	ctx := context.Background()

	s.Run("provisions the identity on first login without a password", func() {
		user, session, err := s.service.Login(ctx, "ops.registrar@registry.gov.gh", "")
		s.Require().NoError(err)
		s.Equal(models.RoleRegistrar, user.Role)
		s.True(user.Verified)
		s.Equal("Ops", user.FirstName)
		s.Equal("Registrar", user.LastName)
		s.NotEmpty(session.SID)
	})

	s.Run("keeps the fixed role on subsequent logins", func() {
		first, _, err := s.service.Login(ctx, "ops.registrar@registry.gov.gh", "")
		s.Require().NoError(err)

		again, _, err := s.service.Login(ctx, "ops.registrar@registry.gov.gh", "ignored")
		s.Require().NoError(err)
		s.Equal(first.ID, again.ID)
		s.Equal(models.RoleRegistrar, again.Role)
	})

	s.Run("non-listed identities still need credentials", func() {
		_, _, err := s.service.Login(ctx, "stranger@registry.gov.gh", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthServiceSuite) TestResolveSession() {
	ctx := context.Background()

	s.Run("resolves identity and touches the expiry", func() {
		user := s.registerVerified("resolve@example.com")
		_, session, err := s.service.Login(ctx, "resolve@example.com", "correct horse battery")
		s.Require().NoError(err)

		identity, err := s.service.ResolveSession(ctx, session.SID)
		s.Require().NoError(err)
		s.Equal(user.ID, identity.UserID)
		s.Equal("public", identity.Role)
	})

	s.Run("serves repeat resolutions from the cache", func() {
		s.registerVerified("cached@example.com")
		_, session, err := s.service.Login(ctx, "cached@example.com", "correct horse battery")
		s.Require().NoError(err)

		_, err = s.service.ResolveSession(ctx, session.SID)
		s.Require().NoError(err)

		// A cached identity survives session store deletion until the TTL.
		s.Require().NoError(s.sessions.Delete(ctx, session.SID))
		identity, err := s.service.ResolveSession(ctx, session.SID)
		s.Require().NoError(err)
		s.NotEmpty(identity.UserID)
	})

	s.Run("rejects an expired session and deletes it", func() {
		svc := New(Config{
			Users:      s.users,
			Sessions:   s.sessions,
			Notifier:   s.notifier,
			Logger:     slog.Default(),
			SessionTTL: 24 * time.Hour,
		})
		past := time.Now().Add(-48 * time.Hour)
		svc.now = func() time.Time { return past }

		user := s.registerVerified("expired@example.com")
		session, err := svc.StartSession(ctx, user)
		s.Require().NoError(err)

		svc.now = time.Now
		_, err = svc.ResolveSession(ctx, session.SID)
		s.Require().ErrorIs(err, sentinel.ErrExpired)

		_, err = s.sessions.Find(ctx, session.SID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects an unknown sid", func() {
		_, err := s.service.ResolveSession(ctx, "no-such-session")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AuthServiceSuite) TestLogout() {
	ctx := context.Background()

	s.Run("destroys the session", func() {
		s.registerVerified("bye@example.com")
		_, session, err := s.service.Login(ctx, "bye@example.com", "correct horse battery")
		s.Require().NoError(err)

		s.Require().NoError(s.service.Logout(ctx, session.SID))

		_, err = s.sessions.Find(ctx, session.SID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("logging out twice is fine", func() {
		s.registerVerified("twice@example.com")
		_, session, err := s.service.Login(ctx, "twice@example.com", "correct horse battery")
		s.Require().NoError(err)

		s.Require().NoError(s.service.Logout(ctx, session.SID))
		s.Require().NoError(s.service.Logout(ctx, session.SID))
	})
}

func (s *AuthServiceSuite) TestVerifyEmail() {
	ctx := context.Background()

	s.Run("marks verified and clears the token", func() {
		user := s.register("verify.flow@example.com")
		token := s.notifier.verificationToken("verify.flow@example.com")

		s.Require().NoError(s.service.VerifyEmail(ctx, token))

		updated, err := s.users.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		s.True(updated.Verified)
		s.Empty(updated.VerificationToken)
	})

	s.Run("token is single-use", func() {
		s.register("single.use@example.com")
		token := s.notifier.verificationToken("single.use@example.com")

		s.Require().NoError(s.service.VerifyEmail(ctx, token))
		err := s.service.VerifyEmail(ctx, token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects an expired token", func() {
		s.register("late@example.com")
		token := s.notifier.verificationToken("late@example.com")

		s.service.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		defer func() { s.service.now = time.Now }()

		err := s.service.VerifyEmail(ctx, token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *AuthServiceSuite) TestResendVerification() {
	ctx := context.Background()

	s.Run("issues a fresh token", func() {
		s.register("resend@example.com")
		first := s.notifier.verificationToken("resend@example.com")

		s.Require().NoError(s.service.ResendVerification(ctx, "resend@example.com"))
		second := s.notifier.verificationToken("resend@example.com")
		s.NotEqual(first, second)

		s.Require().NoError(s.service.VerifyEmail(ctx, second))
	})

	s.Run("unknown email no-ops silently", func() {
		s.Require().NoError(s.service.ResendVerification(ctx, "ghost@example.com"))
	})

	s.Run("already verified no-ops silently", func() {
		s.registerVerified("done@example.com")
		token := s.notifier.verificationToken("done@example.com")

		s.Require().NoError(s.service.ResendVerification(ctx, "done@example.com"))
		s.Equal(token, s.notifier.verificationToken("done@example.com"))
	})
}

func (s *AuthServiceSuite) TestPasswordReset() {
	ctx := context.Background()

	s.Run("full reset flow replaces the password", func() {
		s.registerVerified("forgot@example.com")

		s.Require().NoError(s.service.RequestPasswordReset(ctx, "forgot@example.com"))
		token := s.notifier.resetToken("forgot@example.com")
		s.Require().NotEmpty(token)

		s.Require().NoError(s.service.ResetPassword(ctx, token, "brand new password"))

		_, _, err := s.service.Login(ctx, "forgot@example.com", "correct horse battery")
		s.Require().Error(err)

		_, _, err = s.service.Login(ctx, "forgot@example.com", "brand new password")
		s.Require().NoError(err)
	})

	s.Run("reset token is single-use", func() {
		s.registerVerified("once@example.com")
		s.Require().NoError(s.service.RequestPasswordReset(ctx, "once@example.com"))
		token := s.notifier.resetToken("once@example.com")

		s.Require().NoError(s.service.ResetPassword(ctx, token, "new password one"))
		err := s.service.ResetPassword(ctx, token, "new password two")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("reset token expires after an hour", func() {
		s.registerVerified("slow@example.com")
		s.Require().NoError(s.service.RequestPasswordReset(ctx, "slow@example.com"))
		token := s.notifier.resetToken("slow@example.com")

		s.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { s.service.now = time.Now }()

		err := s.service.ResetPassword(ctx, token, "too late password")
		s.Require().Error(err)
	})

	s.Run("unknown email no-ops without a notification", func() {
		s.Require().NoError(s.service.RequestPasswordReset(ctx, "nobody@example.com"))
		s.Empty(s.notifier.resetToken("nobody@example.com"))
	})
}
