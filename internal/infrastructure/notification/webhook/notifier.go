package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

const (
	// SignatureHeader carries "sha256=<hex>" of the request body.
	SignatureHeader = "X-Webhook-Signature"
	userAgent       = "SRE-Monitoring-Tool/1.0"
)

// Config configures webhook delivery.
type Config struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// SlackPayload is a Slack incoming-webhook compatible body.
type SlackPayload struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment carries structured cycle fields.
type SlackAttachment struct {
	Color  string       `json:"color"`
	Fields []SlackField `json:"fields"`
}

// SlackField is one key/value row of an attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notifier implements port.NotificationService for a Slack-compatible webhook.
type Notifier struct {
	config Config
	client *http.Client
	logger *logger.Logger
}

// NewNotifier creates a webhook notifier with defaults for unset fields.
func NewNotifier(cfg Config, log *logger.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	return &Notifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
}

// nonRetryableError wraps errors that should not be retried (4xx).
type nonRetryableError struct{ err error }

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// Name returns the sink name used in logs and metrics.
func (n *Notifier) Name() string {
	return "webhook"
}

// Notify posts the intent, retrying 5xx and transport errors with exponential backoff.
func (n *Notifier) Notify(ctx context.Context, intent port.NotificationIntent) error {
	payload, err := json.Marshal(BuildSlackPayload(intent))
	if err != nil {
		return fmt.Errorf("build webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < n.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := n.config.Backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = n.post(ctx, payload)
		if lastErr == nil {
			return nil
		}

		var permanent *nonRetryableError
		if errors.As(lastErr, &permanent) {
			return lastErr
		}

		n.logger.Warn("Webhook delivery attempt failed",
			"attempt", attempt+1,
			"max_retries", n.config.MaxRetries,
			"error", lastErr.Error(),
		)
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", n.config.MaxRetries, lastErr)
}

func (n *Notifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(payload))
	if err != nil {
		return &nonRetryableError{err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if n.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, n.config.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &nonRetryableError{err: fmt.Errorf("client error: HTTP %d", resp.StatusCode)}
	}
	return nil
}

// BuildSlackPayload converts an intent to the Slack message body.
func BuildSlackPayload(intent port.NotificationIntent) SlackPayload {
	payload := SlackPayload{
		Channel: "#" + intent.Channel,
		Text:    intent.Message,
	}

	if intent.Report == nil {
		return payload
	}

	attachment := SlackAttachment{Color: statusColor(intent.SeverityBand)}
	attachment.Fields = append(attachment.Fields,
		SlackField{Title: "Cycle", Value: intent.Report.CycleID, Short: true},
		SlackField{Title: "Status", Value: intent.SeverityBand, Short: true},
	)
	for _, report := range intent.Report.Reports {
		value := report.Status
		if report.Reason == "" {
			value = fmt.Sprintf("%s (%.2f%s)", report.Status, report.Value, report.Unit)
		}
		attachment.Fields = append(attachment.Fields, SlackField{Title: report.Type, Value: value, Short: true})
	}
	payload.Attachments = []SlackAttachment{attachment}

	return payload
}

func statusColor(status string) string {
	switch status {
	case "CRIT":
		return "danger"
	case "WARN":
		return "warning"
	default:
		return "good"
	}
}

// Sign computes the HMAC-SHA256 signature header value.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header value against a payload and secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
