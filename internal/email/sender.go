package email

import (
	"context"

	"go.uber.org/zap"
)

// Sender is the email delivery collaborator invoked at the end of the EMAIL
// queue's dispatch. Transport internals (SMTP, SendGrid, SES) live behind it.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender records the send instead of delivering it. Stands in for a real
// transport in development and tests.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
