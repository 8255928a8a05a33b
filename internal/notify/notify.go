// Package notify delivers out-of-band user notifications such as password
// reset codes and share invitations.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind identifies what a notification is about.
type Kind string

const (
	KindPasswordReset Kind = "password_reset"
	KindListShared    Kind = "list_shared"
	KindGroupInvite   Kind = "group_invite"
)

// Message is one notification addressed to a single recipient.
type Message struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	// Attempt is the 1-based delivery attempt, set by the dispatcher.
	Attempt int `json:"attempt"`
}

// NewMessage returns a message with a fresh ID and timestamp.
func NewMessage(kind Kind, recipient, subject, body string, data map[string]string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier sends a message. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NonRetryableError marks delivery failures that retrying cannot fix.
type NonRetryableError struct {
	msg string
}

func (e *NonRetryableError) Error() string {
	return e.msg
}

// NonRetryable wraps a message as a NonRetryableError.
func NonRetryable(msg string) error {
	return &NonRetryableError{msg: msg}
}

// IsNonRetryable reports whether err came from a non-retryable failure.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var target *NonRetryableError
	return errors.As(err, &target)
}

// LogNotifier writes notifications to the log instead of delivering them.
// It is the development default when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("id", msg.ID),
		zap.String("kind", string(msg.Kind)),
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.Int("attempt", msg.Attempt),
	}
	for k, v := range msg.Data {
		fields = append(fields, zap.String("data."+k, v))
	}
	n.logger.Info("notification", fields...)
	return nil
}
