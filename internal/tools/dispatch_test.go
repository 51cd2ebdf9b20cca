package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/capability"
	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/registry"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

func testServerContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "institutions": {
    "sandbox": {"aws_access_key_id": "AKIASANDBOX000000001", "aws_secret_access_key": "s1"}
  }
}`), 0o600))
	store, err := credstore.Load(path)
	require.NoError(t, err)

	reg := registry.New(store, awsapi.Options{}, registry.WithConstructor(
		func(ctx context.Context, institution string, cred credstore.Credential) (*awsapi.Bundle, error) {
			return &awsapi.Bundle{Institution: institution}, nil
		}))

	all := append([]server.Option{server.WithStore(store), server.WithRegistry(reg)}, opts...)
	sc, err := server.NewServerContext(context.Background(), all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) envelope.Result {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "tool result must be text content")
	var env envelope.Result
	require.NoError(t, json.Unmarshal([]byte(text.Text), &env))
	return env
}

func TestWrapMissingInstitution(t *testing.T) {
	sc := testServerContext(t)
	called := false
	handler := Wrap(ToolSpec{
		Name:             "get_users",
		NeedsInstitution: true,
		Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
			called = true
			return nil, nil
		},
	}, sc)

	result, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	env := decodeEnvelope(t, result)
	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindInvalidArgument, env.ErrorType)
	assert.False(t, called, "handler must not run without a tenant")
}

func TestWrapUnknownInstitution(t *testing.T) {
	sc := testServerContext(t)
	called := false
	handler := Wrap(ToolSpec{
		Name:             "get_users",
		NeedsInstitution: true,
		Capability:       capability.IdentityOps,
		Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
			called = true
			return nil, nil
		},
	}, sc)

	result, err := handler(context.Background(), callRequest(map[string]any{"institution": "acme"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, result)

	// Tenant resolution fails before the capability gate is consulted.
	assert.Equal(t, envelope.KindUnknownInstitution, env.ErrorType)
	assert.Contains(t, env.ErrorMsg, "sandbox")
	assert.Equal(t, "acme", env.Institution)
	assert.False(t, called)
}

func TestWrapCapabilityGate(t *testing.T) {
	sc := testServerContext(t)
	called := false
	handler := Wrap(ToolSpec{
		Name:             "verify_email",
		NeedsInstitution: true,
		Capability:       capability.IdentityOps,
		Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
			called = true
			return nil, nil
		},
	}, sc)

	result, err := handler(context.Background(), callRequest(map[string]any{"institution": "sandbox"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, result)
	assert.Equal(t, envelope.KindCapabilityUnavailable, env.ErrorType)
	assert.Contains(t, env.ErrorMsg, capability.IdentityOps)
	assert.False(t, called, "gated handler must not run")
}

func TestWrapCapabilityGateOpen(t *testing.T) {
	factory := awsapi.IdentityOpsFactory(func(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
		return nil, nil
	})
	sc := testServerContext(t, server.WithIdentityOps(factory))

	handler := Wrap(ToolSpec{
		Name:             "verify_email",
		NeedsInstitution: true,
		Capability:       capability.IdentityOps,
		Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
			return map[string]any{"status": "sent"}, nil
		},
	}, sc)

	result, err := handler(context.Background(), callRequest(map[string]any{"institution": "sandbox"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, result)
	assert.True(t, env.Success)
}

func TestWrapSuccessEnvelope(t *testing.T) {
	sc := testServerContext(t)
	handler := Wrap(ToolSpec{
		Name:             "get_projects",
		NeedsInstitution: true,
		Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
			return map[string]any{"count": 2}, nil
		},
	}, sc)

	result, err := handler(context.Background(), callRequest(map[string]any{"institution": "sandbox"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	env := decodeEnvelope(t, result)
	assert.True(t, env.Success)
	assert.Equal(t, "sandbox", env.Institution)
	assert.Equal(t, "get_projects", env.Operation)
	assert.NotEmpty(t, env.Timestamp)
}

func TestWrapClassifiesHandlerErrors(t *testing.T) {
	sc := testServerContext(t)

	for name, tc := range map[string]struct {
		err      error
		wantKind envelope.Kind
		wantCode string
	}{
		"classified": {
			err:      envelope.Errorf(envelope.KindCredentials, "rejected"),
			wantKind: envelope.KindCredentials,
		},
		"aws api fault": {
			err:      &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "denied"},
			wantKind: envelope.KindAWSAPI,
			wantCode: "AccessDeniedException",
		},
		"plain": {
			err:      errors.New("boom"),
			wantKind: envelope.KindInternal,
		},
	} {
		t.Run(name, func(t *testing.T) {
			handler := Wrap(ToolSpec{
				Name:             "get_tags",
				NeedsInstitution: true,
				Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
					return nil, tc.err
				},
			}, sc)

			result, err := handler(context.Background(), callRequest(map[string]any{"institution": "sandbox"}))
			require.NoError(t, err)
			env := decodeEnvelope(t, result)
			assert.Equal(t, tc.wantKind, env.ErrorType)
			assert.Equal(t, tc.wantCode, env.ErrorCode)
		})
	}
}

func TestWrapContainsPanics(t *testing.T) {
	sc := testServerContext(t)
	handler := Wrap(ToolSpec{
		Name: "health_check",
		Handler: func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
			panic("secret detail that must not leak")
		},
	}, sc)

	result, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err, "panics must not surface as transport errors")

	env := decodeEnvelope(t, result)
	assert.Equal(t, envelope.KindInternal, env.ErrorType)
	assert.NotEmpty(t, env.ErrorCode, "internal errors carry a correlation ID")
	assert.Contains(t, env.ErrorMsg, env.ErrorCode)
	assert.NotContains(t, env.ErrorMsg, "secret detail")
}

func TestRequireString(t *testing.T) {
	_, err := RequireString(callRequest(nil), "user_id")
	require.Error(t, err)
	assert.Equal(t, envelope.KindInvalidArgument, envelope.Classify(err).Kind)

	v, err := RequireString(callRequest(map[string]any{"user_id": "u-1"}), "user_id")
	require.NoError(t, err)
	assert.Equal(t, "u-1", v)
}

func TestOptionalStringSlice(t *testing.T) {
	got, err := OptionalStringSlice(callRequest(nil), "exclude_services")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = OptionalStringSlice(callRequest(map[string]any{"exclude_services": []any{"Tax", "Support"}}), "exclude_services")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tax", "Support"}, got)

	got, err = OptionalStringSlice(callRequest(map[string]any{"exclude_services": []string{"Tax"}}), "exclude_services")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tax"}, got)

	_, err = OptionalStringSlice(callRequest(map[string]any{"exclude_services": "Tax"}), "exclude_services")
	require.Error(t, err)
	assert.Equal(t, envelope.KindInvalidArgument, envelope.Classify(err).Kind)

	_, err = OptionalStringSlice(callRequest(map[string]any{"exclude_services": []any{1}}), "exclude_services")
	require.Error(t, err)
}
