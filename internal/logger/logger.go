// Package logger wraps zap with key/value redaction for request data that
// should never reach log sinks (bearer tokens, API keys, raw user IDs).
package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	hashSalt      string
}

// New builds a logger. mode is "prod"/"production" for JSON output, anything
// else for the console encoder.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// Nop returns a logger that discards everything. Useful as a default for
// library constructors and tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// WithHashSalt sets the salt mixed into hashed identifiers.
func (l *Logger) WithHashSalt(salt string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger, hashSalt: salt}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.SugaredLogger.Debugw(msg, l.sanitize(kv)...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.SugaredLogger.Infow(msg, l.sanitize(kv)...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.SugaredLogger.Warnw(msg, l.sanitize(kv)...)
}

func (l *Logger) Error(msg string, kv ...any) {
	l.SugaredLogger.Errorw(msg, l.sanitize(kv)...)
}

func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.sanitize(kv)...), hashSalt: l.hashSalt}
}

func (l *Logger) sanitize(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, l.sanitizeValue(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	return out
}

func (l *Logger) sanitizeValue(key string, val any) any {
	switch {
	case isRedactKey(key):
		return "[REDACTED]"
	case isHashKey(key):
		return l.hash(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return "[REDACTED]"
	}
	return val
}

// isRedactKey matches credential-like keys. Token counters such as
// "input_tokens" are left alone.
func isRedactKey(key string) bool {
	if key == "token" || strings.HasSuffix(key, "_token") || strings.HasPrefix(key, "token_") {
		return true
	}
	for _, frag := range []string{"authorization", "password", "secret", "api_key", "apikey", "cookie"} {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func isHashKey(key string) bool {
	return key == "user_id" || strings.HasSuffix(key, "_user_id")
}

func (l *Logger) hash(val any) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	_, _ = h.Write([]byte(l.hashSalt))
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
