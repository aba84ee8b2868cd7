package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Email templates. Bodies use %s placeholders filled from the variables the
// enqueuing side provides, in template order.
var emailTemplates = map[string]struct {
	subject string
	body    string
	vars    []string
}{
	"proof_submitted": {
		subject: "New proof submitted on your job",
		body:    "A tester submitted proof for %s. The bounty of %s KZ is now held in escrow pending your review.",
		vars:    []string{"job_title", "bounty"},
	},
	"proof_approved": {
		subject: "Your submission was approved",
		body:    "Your submission for %s was approved. %s KZ is now available in your wallet.",
		vars:    []string{"job_title", "bounty"},
	},
	"proof_rejected": {
		subject: "Your submission was rejected",
		body:    "Your submission for %s was rejected. Reason: %s. You may revise and submit again.",
		vars:    []string{"job_title", "reason"},
	},
	"admin_override": {
		subject: "A platform decision was revised",
		body:    "An administrator reviewed the submission for %s and revised the outcome: %s",
		vars:    []string{"job_title", "detail"},
	},
	"deposit_received": {
		subject: "Deposit received",
		body:    "Your deposit of %s was credited as %s KZ to your wallet.",
		vars:    []string{"original", "credited"},
	},
}

// Mailer delivers templated emails through an HTTP transactional-mail
// provider. With no URL configured it logs instead of sending, so local
// development never needs mail credentials.
type Mailer struct {
	url    string
	apiKey string
	client *http.Client
	log    *slog.Logger
}

func NewMailer(url, apiKey string, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

// SendTemplated renders and sends one email. Errors are for the caller's
// retry policy only; they never reach the financial path.
func (m *Mailer) SendTemplated(ctx context.Context, to, template string, variables map[string]string) error {
	t, ok := emailTemplates[template]
	if !ok {
		return fmt.Errorf("unknown email template %q", template)
	}
	args := make([]any, len(t.vars))
	for i, v := range t.vars {
		args[i] = variables[v]
	}
	body := fmt.Sprintf(t.body, args...)

	if m.url == "" {
		m.log.Info("email (no mailer configured)", "to", to, "subject", t.subject)
		return nil
	}

	payload, _ := json.Marshal(map[string]string{
		"to":      to,
		"subject": t.subject,
		"body":    body,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mailer returned status %d", resp.StatusCode)
	}
	return nil
}
