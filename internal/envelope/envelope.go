// Package envelope defines the uniform success/failure shape returned by
// every broker tool, and the error taxonomy that failures are classified
// into before they reach the protocol layer.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/smithy-go"
)

// Kind classifies a tool failure. The values are wire-visible: they appear
// verbatim in the "error_type" field of a failure envelope so that callers
// can distinguish "fix your configuration", "fix your call", "wait and
// retry" and "contact the operator" cases.
type Kind string

const (
	// KindConfig indicates bad startup configuration. Fatal at boot, never
	// produced for an individual call.
	KindConfig Kind = "config_error"

	// KindUnknownInstitution indicates the requested institution is not
	// present in the credential store.
	KindUnknownInstitution Kind = "unknown_institution"

	// KindCredentials indicates AWS rejected the institution's credentials.
	KindCredentials Kind = "credentials_error"

	// KindInvalidArgument indicates a missing or malformed tool argument.
	KindInvalidArgument Kind = "invalid_argument"

	// KindCapabilityUnavailable indicates an optional module required by the
	// tool is not compiled into this build.
	KindCapabilityUnavailable Kind = "capability_unavailable"

	// KindAWSAPI indicates the remote provider returned a failure. The
	// provider's error code is carried verbatim in Code.
	KindAWSAPI Kind = "aws_api_error"

	// KindInternal is the catch-all for unanticipated faults caught at the
	// dispatcher boundary.
	KindInternal Kind = "internal_error"
)

// Error is a classified broker failure. Exactly one is attached to a
// failure envelope. Message must never contain credential material.
type Error struct {
	Kind    Kind
	Code    string // provider error code for KindAWSAPI, correlation ID for KindInternal
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Classify maps an arbitrary error to a broker Error. Already-classified
// errors pass through unchanged; AWS API faults become KindAWSAPI with the
// provider code preserved; anything else becomes KindInternal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return &Error{
			Kind:    KindAWSAPI,
			Code:    ae.ErrorCode(),
			Message: fmt.Sprintf("AWS API error: %s", ae.ErrorMessage()),
		}
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// Result is the uniform envelope serialized back to the protocol layer for
// every tool call, success or failure.
type Result struct {
	Success     bool   `json:"success"`
	Data        any    `json:"data,omitempty"`
	ErrorMsg    string `json:"error,omitempty"`
	ErrorType   Kind   `json:"error_type,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Institution string `json:"institution,omitempty"`
	Operation   string `json:"operation,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Ok wraps a tool-specific payload in a success envelope.
func Ok(data any) *Result {
	return &Result{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Fail wraps a classified error in a failure envelope. The operation and
// institution give the caller enough context to correlate failures without
// exposing anything beyond the classified message.
func Fail(operation, institution string, err *Error) *Result {
	return &Result{
		Success:     false,
		ErrorMsg:    err.Message,
		ErrorType:   err.Kind,
		ErrorCode:   err.Code,
		Institution: institution,
		Operation:   operation,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// JSON renders the envelope for the protocol layer. Marshal failures fall
// back to a minimal hand-built failure document rather than propagating.
func (r *Result) JSON() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q,"error_type":%q}`, err.Error(), KindInternal)
	}
	return string(b)
}
