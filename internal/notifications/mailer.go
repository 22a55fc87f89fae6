package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/baanfurniture/storefront-backend/pkg/logger"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers a Message. Implementations must honour ctx cancellation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the structured log instead of delivering them.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"mail_from":    msg.From,
		"mail_to":      msg.To,
		"mail_subject": msg.Subject,
		"mail_bytes":   len(msg.Body),
	}), "email sent")
	return nil
}
