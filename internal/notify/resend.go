package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vitalreg/pkg/platform/circuit"
)

// Resend sends email through the Resend HTTP API. A circuit breaker guards
// the provider: while it is open, sends fail fast instead of waiting out
// the client timeout on every request, and after each cooldown one send is
// let through so a recovered provider closes the circuit again.
type Resend struct {
	client     *http.Client
	breaker    *circuit.Breaker
	baseURL    string
	apiKey     string
	from       string
	appBaseURL string
}

// ResendConfig configures the Resend client.
type ResendConfig struct {
	APIKey     string
	BaseURL    string
	From       string
	AppBaseURL string
}

// NewResend constructs a Resend-backed notifier.
func NewResend(cfg ResendConfig) *Resend {
	return &Resend{
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    circuit.New("resend", circuit.WithFailureThreshold(5)),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		appBaseURL: cfg.AppBaseURL,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (r *Resend) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", r.appBaseURL, url.QueryEscape(token))
	return r.send(ctx, sendRequest{
		From:    r.from,
		To:      []string{to},
		Subject: "Verify your email",
		HTML:    fmt.Sprintf(`Click <a href="%s">here</a> to verify your email`, link),
	})
}

func (r *Resend) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", r.appBaseURL, url.QueryEscape(token))
	return r.send(ctx, sendRequest{
		From:    r.from,
		To:      []string{to},
		Subject: "Reset your password",
		HTML:    fmt.Sprintf(`Click <a href="%s">here</a> to reset your password`, link),
	})
}

func (r *Resend) send(ctx context.Context, payload sendRequest) error {
	if !r.breaker.Allow() {
		return fmt.Errorf("send email: provider circuit open")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.breaker.RecordFailure()
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		r.breaker.RecordFailure()
	} else {
		r.breaker.RecordSuccess()
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send email: provider returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
