package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SignatureHeader carries the HMAC of a webhook body.
const SignatureHeader = "X-TaskSync-Signature"

const signaturePrefix = "sha256="

// WebhookNotifier POSTs messages as JSON to a receiver that relays them
// (email, push). Bodies are signed with HMAC-SHA256.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookNotifier returns a notifier posting to url. A nil client gets a
// 10 second timeout.
func NewWebhookNotifier(url, secret string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, secret: secret, client: client}
}

// Send delivers msg. 4xx replies are non-retryable; transport errors and
// 5xx replies may be retried by the caller.
func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return NonRetryable(fmt.Sprintf("encode notification: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return NonRetryable(fmt.Sprintf("build notification request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(payload, n.secret))
	req.Header.Set("X-TaskSync-Delivery", msg.ID)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(body))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return NonRetryable(fmt.Sprintf("notification rejected: %d %s", resp.StatusCode, detail))
	}
	return fmt.Errorf("notification receiver error: %d %s", resp.StatusCode, detail)
}

// Sign returns the signature header value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header against payload using a
// constant-time comparison.
func VerifySignature(payload []byte, signature, secret string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(Sign(payload, secret)))
}
