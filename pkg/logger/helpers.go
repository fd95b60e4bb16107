package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogRateLimit records that the upstream answered 429. The run stops afterwards;
// nothing here waits or retries.
func LogRateLimit(l Logger, stream, target string) {
	l.WithFields(map[string]interface{}{
		"stream": stream,
		"target": target,
		"action": "rate_limited",
	}).Warn("Rate limit reached, stopping run")
}

// LogPageProgress logs one fetched page of the comment stream
func LogPageProgress(l Logger, shortcode string, page, collected int, hasNext bool) {
	l.DebugWithFields("Comment page processed", map[string]interface{}{
		"shortcode": shortcode,
		"page":      page,
		"collected": collected,
		"has_next":  hasNext,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	cl := l.WithField("component", component)
	if len(config) > 0 {
		cl = cl.WithFields(config)
	}
	cl.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
