// Package logging provides slog attribute helpers with consistent key
// naming and redaction of credential material and user PII.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation     = "operation"
	KeyInstitution   = "institution"
	KeyTool          = "tool"
	KeyDuration      = "duration"
	KeyStatus        = "status"
	KeyError         = "error"
	KeyErrorKind     = "error_kind"
	KeyCorrelationID = "correlation_id"
	KeyUserHash      = "user_hash"
	KeyTransport     = "transport"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New builds the process logger. Format "json" selects the JSON handler,
// anything else the text handler.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithInstitution returns a logger with the institution attribute set.
func WithInstitution(logger *slog.Logger, institution string) *slog.Logger {
	return logger.With(slog.String(KeyInstitution, institution))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Institution returns a slog attribute for the institution name.
func Institution(name string) slog.Attr {
	return slog.String(KeyInstitution, name)
}

// Tool returns a slog attribute for the tool name.
func Tool(name string) slog.Attr {
	return slog.String(KeyTool, name)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// CorrelationID returns a slog attribute for an internal-error correlation ID.
func CorrelationID(id string) slog.Attr {
	return slog.String(KeyCorrelationID, id)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging.
// This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user identifier.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeSecret returns a masked version of a secret for logging.
// It returns a length indicator without exposing any secret content,
// as even partial key material can aid attacks.
func SanitizeSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[secret:%d chars]", len(secret))
}
