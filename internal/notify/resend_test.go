package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vitalreg/pkg/platform/circuit"
)

type ResendSuite struct {
	suite.Suite
}

func TestResendSuite(t *testing.T) {
	suite.Run(t, new(ResendSuite))
}

func (s *ResendSuite) TestSendVerificationEmail() {
	var got sendRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewResend(ResendConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		From:       "noreply@registry.gov.gh",
		AppBaseURL: "https://registry.example.com",
	})

	err := n.SendVerificationEmail(context.Background(), "jane@example.com", "tok-123")
	s.Require().NoError(err)

	s.Equal("Bearer test-key", auth)
	s.Equal("noreply@registry.gov.gh", got.From)
	s.Equal([]string{"jane@example.com"}, got.To)
	s.Equal("Verify your email", got.Subject)
	s.Contains(got.HTML, "https://registry.example.com/verify?token=tok-123")
}

func (s *ResendSuite) TestSendPasswordResetEmail() {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewResend(ResendConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		From:       "noreply@registry.gov.gh",
		AppBaseURL: "https://registry.example.com",
	})

	err := n.SendPasswordResetEmail(context.Background(), "jane@example.com", "tok-456")
	s.Require().NoError(err)

	s.Equal("Reset your password", got.Subject)
	s.Contains(got.HTML, "/reset-password?token=tok-456")
}

func (s *ResendSuite) TestProviderErrorSurfaces() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid API key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewResend(ResendConfig{APIKey: "bad", BaseURL: server.URL})

	err := n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
	s.Require().Error(err)
	s.Contains(err.Error(), "401")
}

func (s *ResendSuite) TestBreakerFailsFastAfterOutage() {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewResend(ResendConfig{APIKey: "key", BaseURL: server.URL})

	for i := 0; i < 5; i++ {
		err := n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
		s.Require().Error(err)
	}
	s.Equal(5, hits)

	err := n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
	s.Require().Error(err)
	s.Contains(err.Error(), "circuit open")
	s.Equal(5, hits, "open circuit must not reach the provider")
}

func (s *ResendSuite) TestBreakerRecoversAfterCooldown() {
	var hits int
	var healthy bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if !healthy {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewResend(ResendConfig{APIKey: "key", BaseURL: server.URL})
	n.breaker = circuit.New("resend",
		circuit.WithFailureThreshold(5),
		circuit.WithCooldown(200*time.Millisecond),
	)

	for i := 0; i < 5; i++ {
		err := n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
		s.Require().Error(err)
	}
	s.Equal(5, hits)

	healthy = true

	err := n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
	s.Require().Error(err, "still inside the cooldown")
	s.Equal(5, hits)

	time.Sleep(250 * time.Millisecond)

	err = n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
	s.Require().NoError(err, "cooldown expired, probe must reach the provider")
	s.Equal(6, hits)

	err = n.SendVerificationEmail(context.Background(), "jane@example.com", "tok")
	s.Require().NoError(err, "successful probe closes the circuit")
	s.Equal(7, hits)
}
