// Package registry caches authenticated client bundles per institution.
// Bundles are constructed lazily on first use, shared read-only across
// concurrent tool calls, and live until explicitly invalidated (credential
// rotation) or the process exits.
package registry

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
)

// ErrClosed is returned once the registry has been shut down.
var ErrClosed = errors.New("client registry is closed")

// Constructor builds a bundle for one institution. The default constructor
// authenticates against AWS; tests substitute their own.
type Constructor func(ctx context.Context, institution string, cred credstore.Credential) (*awsapi.Bundle, error)

// MetricsRecorder receives cache events. A nil-safe no-op is used when the
// instrumentation provider is disabled.
type MetricsRecorder interface {
	RecordHit(institution string)
	RecordMiss(institution string)
	RecordEviction(reason string)
	SetSize(size int)
}

type noopMetrics struct{}

func (noopMetrics) RecordHit(string)      {}
func (noopMetrics) RecordMiss(string)     {}
func (noopMetrics) RecordEviction(string) {}
func (noopMetrics) SetSize(int)           {}

// Registry is the tenant-scoped client pool. Reads are cheap RLock map
// hits; construction is coalesced per institution with singleflight so
// concurrent first users share one authentication attempt and its outcome.
type Registry struct {
	store     *credstore.Store
	construct Constructor
	metrics   MetricsRecorder

	mu      sync.RWMutex
	bundles map[string]*awsapi.Bundle
	gen     uint64
	closed  bool

	group singleflight.Group
}

// Option is a functional option for configuring the Registry.
type Option func(*Registry)

// WithConstructor overrides the bundle constructor.
func WithConstructor(c Constructor) Option {
	return func(r *Registry) { r.construct = c }
}

// WithMetrics sets the cache metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a registry over the given credential store. The default
// constructor builds real AWS bundles with the given region options.
func New(store *credstore.Store, opts awsapi.Options, options ...Option) *Registry {
	r := &Registry{
		store:   store,
		metrics: noopMetrics{},
		bundles: make(map[string]*awsapi.Bundle),
		construct: func(ctx context.Context, institution string, cred credstore.Credential) (*awsapi.Bundle, error) {
			return awsapi.New(ctx, institution, cred, opts)
		},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Bundle returns the cached bundle for an institution, constructing it on
// first use. Unknown institutions fail without any remote call. A failed
// construction is shared by all concurrent waiters but never cached, so
// the next call retries with whatever credential is then in the store.
func (r *Registry) Bundle(ctx context.Context, institution string) (*awsapi.Bundle, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrClosed
	}
	if b, ok := r.bundles[institution]; ok {
		r.mu.RUnlock()
		r.metrics.RecordHit(institution)
		return b, nil
	}
	r.mu.RUnlock()
	r.metrics.RecordMiss(institution)

	cred, err := r.store.Lookup(institution)
	if err != nil {
		return nil, envelope.Errorf(envelope.KindUnknownInstitution,
			"institution %q not found, available: %v", institution, r.store.Names())
	}

	v, err, _ := r.group.Do(institution, func() (any, error) {
		// Double-check under the flight: another caller may have finished
		// construction between our miss and this point.
		r.mu.RLock()
		b, ok := r.bundles[institution]
		startGen := r.gen
		closed := r.closed
		r.mu.RUnlock()
		if closed {
			return nil, ErrClosed
		}
		if ok {
			return b, nil
		}

		// Construction is detached from the caller's cancellation: other
		// waiters coalesced on this flight still depend on its outcome.
		b, err := r.construct(context.WithoutCancel(ctx), institution, cred)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			return nil, ErrClosed
		}
		if r.gen != startGen {
			// Invalidated while we were constructing: the credential read
			// at flight start may have been rotated since. Serve this
			// bundle to the coalesced waiters, but never cache it; the
			// next Bundle call reconstructs with the current credential.
			return b, nil
		}
		r.bundles[institution] = b
		r.metrics.SetSize(len(r.bundles))
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*awsapi.Bundle), nil
}

// Invalidate discards the cached bundle for an institution, forcing
// reconstruction with the credential currently in the store on next use.
// An in-flight construction that started before the call is allowed to
// finish but its result is not cached.
func (r *Registry) Invalidate(institution string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.gen++
	r.group.Forget(institution)
	if _, ok := r.bundles[institution]; ok {
		delete(r.bundles, institution)
		r.metrics.RecordEviction("manual")
		r.metrics.SetSize(len(r.bundles))
	}
}

// InvalidateAll discards every cached bundle, including the results of
// constructions still in flight. Used after a credential store reload.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.gen++
	n := len(r.bundles)
	r.bundles = make(map[string]*awsapi.Bundle)
	for i := 0; i < n; i++ {
		r.metrics.RecordEviction("reload")
	}
	r.metrics.SetSize(0)
}

// Size returns the number of cached bundles.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bundles)
}

// Close empties the registry and rejects further use.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.bundles = nil
}
