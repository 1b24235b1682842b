// internal/logging/logger.go
package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const RedactedText = "[REDACTED]"

var (
	bearerPattern   = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)
	jwtPattern      = regexp.MustCompile(`eyJ[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|secret)=[^;&\s]+`)
)

// New builds the process logger. "local" gets a human readable console encoder,
// everything else JSON.
func New(level, env string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Redact removes tokens and credential fragments from s.
// Use it on any upstream text that ends up in a log line.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = jwtPattern.ReplaceAllString(s, RedactedText)
	return passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
}

// Error is zap.Error with the message passed through Redact.
func Error(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", Redact(err.Error()))
}
