package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewWithLevel returns a redacting logger at the given level. LOG_FORMAT=json
// switches from text to JSON output.
func NewWithLevel(level string) *slog.Logger {
	return newLogger(os.Stdout, ParseLevel(level), os.Getenv("LOG_FORMAT"))
}

// ParseLevel maps a level name onto slog; unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func redact(groups []string, a slog.Attr) slog.Attr {
	if isSecretKey(a.Key) {
		a.Value = slog.StringValue("[redacted]")
	}
	return a
}

// passwordSuffixes end credential keys such as db_password. A bare "pass"
// prefix is not enough: pass_id is the sync pass correlation id.
var passwordSuffixes = []string{"password", "passwd", "passphrase"}

// isSecretKey matches attribute keys that may carry credentials. RPC URLs and
// DSNs routinely embed API keys and passwords.
func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	for _, suffix := range passwordSuffixes {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return strings.Contains(k, "token") ||
		strings.Contains(k, "secret") ||
		strings.Contains(k, "key") ||
		strings.Contains(k, "dsn") ||
		k == "rpc_url"
}
