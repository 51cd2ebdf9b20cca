package awsapitest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/registry"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

// NewServerContext builds a ServerContext whose registry hands out the
// given fake bundles instead of talking to AWS. Every key in bundles
// becomes a configured institution.
func NewServerContext(t testing.TB, bundles map[string]*awsapi.Bundle, opts ...server.Option) *server.ServerContext {
	t.Helper()

	doc := `{"institutions": {`
	first := true
	for name := range bundles {
		if !first {
			doc += ","
		}
		first = false
		doc += fmt.Sprintf(`%q: {"aws_access_key_id": "AKIATEST000000000001", "aws_secret_access_key": "test-secret"}`, name)
	}
	doc += `}}`

	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	store, err := credstore.Load(path)
	if err != nil {
		t.Fatalf("load secrets: %v", err)
	}

	// A nil bundle entry simulates a construction failure for that
	// institution, the way rejected credentials would surface.
	reg := registry.New(store, awsapi.Options{}, registry.WithConstructor(
		func(ctx context.Context, institution string, cred credstore.Credential) (*awsapi.Bundle, error) {
			b := bundles[institution]
			if b == nil {
				return nil, envelope.Errorf(envelope.KindCredentials, "AWS rejected credentials for institution %q", institution)
			}
			return b, nil
		}))

	all := append([]server.Option{server.WithStore(store), server.WithRegistry(reg)}, opts...)
	sc, err := server.NewServerContext(context.Background(), all...)
	if err != nil {
		t.Fatalf("server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}
