package audit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Webhook request headers
const (
	HeaderEvent     = "X-Baynext-Event"
	HeaderDelivery  = "X-Baynext-Delivery"
	HeaderSignature = "X-Baynext-Signature"
)

// WebhookLogger posts each event as JSON to an HTTP collector, retrying
// failed deliveries with exponential backoff. Run it behind an async
// MultiLogger so retries never hold up a request.
type WebhookLogger struct {
	url    string
	secret string
	client *http.Client
	retry  *RetryPolicy
	log    logrus.FieldLogger
}

// NewWebhookLogger creates a webhook sink. When secret is set every body is
// signed with HMAC-SHA256 in the X-Baynext-Signature header.
func NewWebhookLogger(url, secret string, retry RetryConfig, logger logrus.FieldLogger) *WebhookLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebhookLogger{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  NewRetryPolicy(retry),
		log:    logger.WithField("component", "audit_webhook"),
	}
}

// Log delivers event, giving up after the configured number of attempts
func (l *WebhookLogger) Log(ctx context.Context, event *AuditEvent) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	deliveryID := uuid.NewString()

	for attempt := 1; ; attempt++ {
		err = l.send(ctx, event, deliveryID, payload)
		if !l.retry.ShouldRetry(attempt, err) {
			break
		}

		delay := l.retry.NextRetryDelay(attempt)
		l.log.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"delivery": deliveryID,
			"retry_in": delay,
		}).Debug("audit webhook delivery failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err != nil {
		l.log.WithError(err).WithField("delivery", deliveryID).Warn("audit webhook delivery failed")
		return err
	}
	return nil
}

func (l *WebhookLogger) send(ctx context.Context, event *AuditEvent, deliveryID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, string(event.EventType))
	req.Header.Set(HeaderDelivery, deliveryID)
	if l.secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, l.secret))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send audit event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit webhook returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; deliveries are synchronous
func (l *WebhookLogger) Close() error {
	return nil
}

// Sign returns the HMAC-SHA256 signature of payload as "sha256=<hex>"
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature produced by Sign
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
