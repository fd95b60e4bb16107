// Package logger provides the structured logging interface used across instacomments.
//
// It wraps zerolog behind the Logger interface so packages can attach fields
// without depending on zerolog directly:
//
//	log, err := logger.NewWithWriter(&cfg.Logging, os.Stderr)
//	logger.SetLogger(log)
//	log = logger.GetLogger().WithField("shortcode", "C0abc")
//	log.InfoWithFields("Comment page processed", map[string]interface{}{"page": 2})
//
// Console output goes to stderr because stdout carries progress and the final
// summary. Tests use NewTestLogger to capture messages, or NewNopLogger to
// discard them.
package logger
