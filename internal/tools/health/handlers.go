// Package health implements the health_check tool: process status plus a
// per-institution AWS reachability probe.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

// probeConcurrency bounds how many institutions are probed at once so a
// large tenant roster cannot fan out into an unbounded burst of AWS calls.
const probeConcurrency = 4

// handleHealthCheck probes every configured institution concurrently. The
// status map always has one entry per institution: probe failures degrade
// that institution's entry, never the whole call.
func handleHealthCheck(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	names := sc.Store().Names()

	var mu sync.Mutex
	status := make(map[string]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for _, name := range names {
		g.Go(func() error {
			result := probe(gctx, sc, name)
			mu.Lock()
			status[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // probes never return errors, they record them

	return map[string]any{
		"server":                    "healthy",
		"status":                    "running",
		"multi_institution_support": true,
		"credentials_loaded":        sc.Store().Len() > 0,
		"available_institutions":    names,
		"institution_count":         len(names),
		"institution_status":        status,
		"cached_bundles":            sc.Registry().Size(),
		"identity_ops_available":    sc.HasIdentityOps(),
		"version":                   sc.Config().Version,
		"checked_at":                time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// probe resolves the institution's bundle and runs one DescribeOrganization
// round trip. The returned string is safe for the envelope: classified
// message only, never credential material.
func probe(ctx context.Context, sc *server.ServerContext, institution string) string {
	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return "error: " + envelope.Classify(err).Message
	}
	if _, err := bundle.Organizations.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{}); err != nil {
		return "error: " + envelope.Classify(err).Message
	}
	return "connected"
}
