// Package messaging holds notification sinks that need no broker.
package messaging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// LogSink writes notifications to the log. Used when no Kafka brokers are configured.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, n domain.Notification) error {
	s.log.Info().
		Str("notification_id", n.ID).
		Str("awb", n.AWB).
		Str("template", n.Template).
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Msg("notification")
	return nil
}
