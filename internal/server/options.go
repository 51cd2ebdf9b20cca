package server

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/instrumentation"
	"github.com/grnet/mcp-aws-orgs/internal/registry"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithStore sets the tenant credential store for the ServerContext.
func WithStore(store *credstore.Store) Option {
	return func(sc *ServerContext) error {
		if store == nil {
			return ErrMissingStore
		}
		sc.store = store
		return nil
	}
}

// WithRegistry sets the client bundle registry for the ServerContext.
func WithRegistry(reg *registry.Registry) Option {
	return func(sc *ServerContext) error {
		if reg == nil {
			return ErrMissingRegistry
		}
		sc.registry = reg
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithVersion sets the reported server version.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithIdentityOps sets the factory of the optional identity-operations
// module. Builds without the module never call this, leaving verify_email
// and reset_password reporting the capability as unavailable.
func WithIdentityOps(factory awsapi.IdentityOpsFactory) Option {
	return func(sc *ServerContext) error {
		sc.identityOps = factory
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingStore    = errors.New("credential store is required")
	ErrMissingRegistry = errors.New("client bundle registry is required")
	ErrMissingLogger   = errors.New("logger is required")
	ErrMissingConfig   = errors.New("configuration is required")
)

// DefaultLogger is a simple logger implementation that wraps the standard library logger.
type DefaultLogger struct {
	logger *log.Logger
	level  string
}

// NewDefaultLogger creates a new default logger with standard error output.
func NewDefaultLogger() Logger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[mcp-aws-orgs] ", log.LstdFlags),
		level:  "info",
	}
}

// Info logs an informational message.
func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	l.logger.Println(append([]interface{}{"[INFO] " + msg}, args...)...)
}

// Debug logs a debug message.
func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	if l.level == "debug" {
		l.logger.Println(append([]interface{}{"[DEBUG] " + msg}, args...)...)
	}
}

// Warn logs a warning message.
func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	l.logger.Println(append([]interface{}{"[WARN] " + msg}, args...)...)
}

// Error logs an error message.
func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	l.logger.Println(append([]interface{}{"[ERROR] " + msg}, args...)...)
}

// With returns a new logger with additional context fields.
func (l *DefaultLogger) With(args ...interface{}) Logger {
	if len(args) > 0 {
		prefix := fmt.Sprintf("[mcp-aws-orgs] %v ", args)
		return &DefaultLogger{
			logger: log.New(os.Stderr, prefix, log.LstdFlags),
			level:  l.level,
		}
	}
	return l
}
