package tools

import (
	"strconv"
	"strings"

	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/grnet/mcp-aws-orgs/internal/envelope"
)

// RequireString extracts a required string argument, failing with an
// invalid-argument error the envelope layer renders verbatim.
func RequireString(request mcp.CallToolRequest, key string) (string, error) {
	value := request.GetString(key, "")
	if value == "" {
		return "", envelope.Errorf(envelope.KindInvalidArgument, "missing required argument %q", key)
	}
	return value, nil
}

// OptionalString extracts an optional string argument.
func OptionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// OptionalBool extracts an optional boolean argument.
func OptionalBool(request mcp.CallToolRequest, key string, defaultValue bool) bool {
	return request.GetBool(key, defaultValue)
}

// OptionalInt extracts an optional integer argument.
func OptionalInt(request mcp.CallToolRequest, key string, defaultValue int) int {
	return request.GetInt(key, defaultValue)
}

// OptionalStringSlice extracts an optional list-of-strings argument. A
// non-list or non-string element is an invalid-argument error rather than
// being silently dropped.
func OptionalStringSlice(request mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		// Already-typed slices appear when callers construct requests natively.
		if typed, ok := raw.([]string); ok {
			return typed, nil
		}
		return nil, envelope.Errorf(envelope.KindInvalidArgument, "argument %q must be a list of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, envelope.Errorf(envelope.KindInvalidArgument, "argument %q must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseBudget parses a Budget tag value such as "$1,500.00" into a float.
// The boolean reports whether the value was a parseable amount.
func ParseBudget(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// InstitutionOption is the tool option for the tenant routing argument,
// shared by every institution-scoped tool.
func InstitutionOption() mcp.ToolOption {
	return mcp.WithString("institution",
		mcp.Required(),
		mcp.Description("Institution name the call is routed to, as configured in the secrets file"),
	)
}
