// Package server wires the broker's dependencies behind a single
// ServerContext: the credential store, the per-institution client bundle
// registry, the optional identity-operations module, logging, and
// instrumentation. Transports and tool handlers receive a ServerContext
// and never construct these pieces themselves.
package server

import (
	"context"
	"sync"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/instrumentation"
	"github.com/grnet/mcp-aws-orgs/internal/registry"
)

// ServerContext encapsulates all dependencies needed by the MCP server
// and provides a clean abstraction for dependency injection and lifecycle management.
type ServerContext struct {
	// Core dependencies
	store    *credstore.Store
	registry *registry.Registry
	logger   Logger
	config   *Config

	// Optional identity-operations module. Nil when the build does not
	// include it; verify_email and reset_password then report the
	// capability as unavailable.
	identityOps awsapi.IdentityOpsFactory

	// Instrumentation
	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
		config: NewDefaultConfig(),
		logger: NewDefaultLogger(),
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// Store returns the tenant credential store.
func (sc *ServerContext) Store() *credstore.Store {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.store
}

// Registry returns the per-institution client bundle registry.
func (sc *ServerContext) Registry() *registry.Registry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.registry
}

// IdentityOps returns the identity-operations factory, or nil when the
// optional module is not part of this build.
func (sc *ServerContext) IdentityOps() awsapi.IdentityOpsFactory {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.identityOps
}

// HasIdentityOps reports whether the identity-operations module is available.
func (sc *ServerContext) HasIdentityOps() bool {
	return sc.IdentityOps() != nil
}

// Logger returns the logger interface.
func (sc *ServerContext) Logger() Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// InstrumentationProvider returns the instrumentation provider, which may be nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// Metrics returns the metric recorder, nil-safe when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.InstrumentationProvider().Metrics()
}

// Reload re-reads the secrets file and drops all cached client bundles so
// the next call per institution authenticates with the fresh credentials.
// On a parse or validation error the previous credential set stays active.
func (sc *ServerContext) Reload() error {
	sc.mu.RLock()
	store, reg, logger, path := sc.store, sc.registry, sc.logger, sc.config.SecretsPath
	sc.mu.RUnlock()

	if err := store.Reload(path); err != nil {
		logger.Error("secrets reload failed, keeping previous credential set", "error", err)
		return err
	}
	reg.InvalidateAll()
	logger.Info("secrets reloaded", "institutions", store.Len())
	return nil
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and releases any resources.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("Shutting down server context")

	if sc.registry != nil {
		sc.registry.Close()
	}
	if sc.cancel != nil {
		sc.cancel()
	}
	sc.shutdown = true

	sc.logger.Info("Server context shutdown complete")
	return nil
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.store == nil {
		return ErrMissingStore
	}
	if sc.registry == nil {
		return ErrMissingRegistry
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}

// Logger defines the interface for logging operations.
type Logger interface {
	// Info logs an informational message.
	Info(msg string, args ...interface{})

	// Debug logs a debug message.
	Debug(msg string, args ...interface{})

	// Warn logs a warning message.
	Warn(msg string, args ...interface{})

	// Error logs an error message.
	Error(msg string, args ...interface{})

	// With returns a new logger with additional context fields.
	With(args ...interface{}) Logger
}

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// Tenant settings
	SecretsPath string `json:"secretsPath"`
	Region      string `json:"region"`
	SSORegion   string `json:"ssoRegion"`

	// Logging settings
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName: "mcp-aws-orgs",
		Version:    "0.1.0",
		Region:     awsapi.DefaultRegion,
		SSORegion:  awsapi.DefaultSSORegion,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
