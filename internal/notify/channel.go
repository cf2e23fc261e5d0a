package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a plain text notification.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Channel delivers a message to its recipient.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// LogChannel writes messages to the log instead of delivering them.
type LogChannel struct {
	log *zap.Logger
}

// NewLogChannel creates new LogChannel instance
func NewLogChannel(log *zap.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Send(_ context.Context, msg Message) error {
	c.log.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}
