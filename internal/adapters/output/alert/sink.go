package alert

import (
	"go.uber.org/zap"

	"microtask/internal/core/ports"
)

// LogSink surfaces alerts through the structured log. Headless deployments
// use it directly; a desktop frontend would swap in its own ports.AlertSink.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		panic("logger is nil")
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(title, body string) {
	s.log.Info("alert", zap.String("title", title), zap.String("body", body))
}

var _ ports.AlertSink = (*LogSink)(nil)
