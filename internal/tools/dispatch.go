// Package tools provides the shared dispatch pipeline for MCP tool
// implementations: tenant resolution, capability gating, panic containment
// and envelope rendering happen here so individual handlers only implement
// their own operation.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/grnet/mcp-aws-orgs/internal/capability"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/instrumentation"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

// Handler is the signature for tool handler functions. Handlers return the
// tool-specific payload; the dispatch wrapper owns envelope construction.
type Handler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error)

// ToolSpec describes one tool to the dispatch pipeline.
type ToolSpec struct {
	// Name is the wire-visible tool name.
	Name string

	// NeedsInstitution marks tools routed to a tenant. For these the
	// institution argument is required and resolved against the credential
	// store before anything else runs.
	NeedsInstitution bool

	// Capability names an optional module the tool depends on. Empty for
	// always-available tools.
	Capability string

	// Handler implements the operation.
	Handler Handler
}

// Wrap builds the MCP handler for a tool spec. The returned function never
// yields a transport-level error: every outcome, including panics, is
// rendered as an envelope so callers always see the uniform shape.
func Wrap(spec ToolSpec, sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		institution := request.GetString("institution", "")

		ctx, span := instrumentation.StartToolSpan(ctx, spec.Name,
			attribute.String(instrumentation.SpanAttrInstitution, institution))
		defer span.End()

		result := dispatch(ctx, spec, sc, request, institution)

		duration := time.Since(start)
		logger := sc.Logger().With(logging.KeyTool, spec.Name)
		if result.Success {
			sc.Metrics().RecordToolCall(ctx, spec.Name, institution, instrumentation.StatusSuccess, duration)
			instrumentation.SetSpanSuccess(span)
			logger.Info("tool call completed",
				logging.KeyInstitution, institution,
				logging.KeyStatus, logging.StatusSuccess,
				logging.KeyDuration, duration)
			return mcp.NewToolResultText(result.JSON()), nil
		}

		sc.Metrics().RecordToolCall(ctx, spec.Name, institution, instrumentation.StatusError, duration)
		sc.Metrics().RecordToolError(ctx, spec.Name, string(result.ErrorType))
		instrumentation.SetSpanError(span, fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMsg))
		logger.Warn("tool call failed",
			logging.KeyInstitution, institution,
			logging.KeyStatus, logging.StatusError,
			logging.KeyErrorKind, string(result.ErrorType),
			logging.KeyError, result.ErrorMsg,
			logging.KeyDuration, duration)
		return mcp.NewToolResultError(result.JSON()), nil
	}
}

// dispatch runs the pipeline for one call: resolve the tenant locally, check
// the capability gate, then execute. Panics are contained here and surface
// as internal errors carrying a correlation ID, never as raw panic text.
func dispatch(ctx context.Context, spec ToolSpec, sc *server.ServerContext, request mcp.CallToolRequest, institution string) (result *envelope.Result) {
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			sc.Logger().Error("tool handler panicked",
				logging.KeyTool, spec.Name,
				logging.KeyInstitution, institution,
				logging.KeyCorrelationID, id,
				"panic", fmt.Sprint(r))
			result = envelope.Fail(spec.Name, institution, &envelope.Error{
				Kind:    envelope.KindInternal,
				Code:    id,
				Message: fmt.Sprintf("internal error, correlation ID %s", id),
			})
		}
	}()

	if spec.NeedsInstitution {
		if institution == "" {
			return envelope.Fail(spec.Name, institution,
				envelope.Errorf(envelope.KindInvalidArgument, "missing required argument %q", "institution"))
		}
		if !sc.Store().Has(institution) {
			return envelope.Fail(spec.Name, institution,
				envelope.Errorf(envelope.KindUnknownInstitution,
					"unknown institution %q, available: %s", institution, strings.Join(sc.Store().Names(), ", ")))
		}
	}

	if spec.Capability != "" && !gateOpen(sc, spec.Capability) {
		return envelope.Fail(spec.Name, institution,
			envelope.Errorf(envelope.KindCapabilityUnavailable,
				"capability %q is not available in this build", spec.Capability))
	}

	data, err := spec.Handler(ctx, request, sc)
	if err != nil {
		return envelope.Fail(spec.Name, institution, envelope.Classify(err))
	}
	out := envelope.Ok(data)
	out.Institution = institution
	out.Operation = spec.Name
	return out
}

// gateOpen reports whether the named capability is usable for this server.
// Identity operations are answered from the ServerContext so tests can
// toggle availability without touching the process-wide registration.
func gateOpen(sc *server.ServerContext, name string) bool {
	if name == capability.IdentityOps {
		return sc.HasIdentityOps()
	}
	return capability.Available(name)
}
