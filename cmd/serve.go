package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/capability"
	"github.com/grnet/mcp-aws-orgs/internal/credstore"
	"github.com/grnet/mcp-aws-orgs/internal/instrumentation"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/registry"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools/budget"
	"github.com/grnet/mcp-aws-orgs/internal/tools/health"
	"github.com/grnet/mcp-aws-orgs/internal/tools/orgs"
	"github.com/grnet/mcp-aws-orgs/internal/tools/tags"
	"github.com/grnet/mcp-aws-orgs/internal/tools/users"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// envSecretsFile is the environment fallback for the --secrets-file flag.
const envSecretsFile = "MCP_AWS_ORGS_SECRETS_FILE"

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string

		// Institution credential options
		secretsFile string
		region      string
		ssoRegion   string

		// Logging options
		logLevel  string
		logFormat string
		debugMode bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP AWS organizations server",
		Long: `Start the MCP server exposing AWS account management tools for
institutions via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Every tool call is scoped to one institution. Institutions and their AWS
credentials are read from a secrets file (JSON or YAML); sending SIGHUP to
the process re-reads the file and drops cached AWS clients so rotated
credentials take effect without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnvIfEmpty(&secretsFile, envSecretsFile)

			config := ServeConfig{
				Transport:       transport,
				HTTPAddr:        httpAddr,
				SSEEndpoint:     sseEndpoint,
				MessageEndpoint: messageEndpoint,
				HTTPEndpoint:    httpEndpoint,
				SecretsPath:     secretsFile,
				Region:          region,
				SSORegion:       ssoRegion,
				LogLevel:        logLevel,
				LogFormat:       logFormat,
				DebugMode:       debugMode,
			}
			return runServe(config)
		},
	}

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	// Institution credential flags
	cmd.Flags().StringVar(&secretsFile, "secrets-file", "", fmt.Sprintf("Path to the institution secrets file (can also be set via %s env var)", envSecretsFile))
	cmd.Flags().StringVar(&region, "region", awsapi.DefaultRegion, "Default AWS region for institution clients")
	cmd.Flags().StringVar(&ssoRegion, "sso-region", awsapi.DefaultSSORegion, "Default AWS region for Identity Center clients")

	// Logging flags
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging (overrides --log-level)")

	return cmd
}

// parseLogLevel maps a level name to its slog level, defaulting to info.
func parseLogLevel(level string, debugMode bool) slog.Level {
	if debugMode {
		return slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runServe contains the main server logic with support for multiple transports.
func runServe(config ServeConfig) error {
	if config.SecretsPath == "" {
		return fmt.Errorf("a secrets file is required (--secrets-file or %s)", envSecretsFile)
	}

	// Logs go to stderr so stdio transport keeps stdout for MCP frames.
	logger := logging.New(os.Stderr, parseLogLevel(config.LogLevel, config.DebugMode), config.LogFormat)

	// A broker with no tenants cannot serve a single call, so a missing or
	// malformed secrets file fails startup instead of failing every request.
	store, err := credstore.Load(config.SecretsPath)
	if err != nil {
		return fmt.Errorf("failed to load secrets file: %w", err)
	}
	logger.Info("institution credentials loaded",
		"path", config.SecretsPath, "institutions", store.Len())

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("error during instrumentation shutdown", logging.KeyError, shutdownErr.Error())
		}
	}()
	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"tracing", instrumentationConfig.TracingExporter,
			"metrics_path", instrumentationProvider.MetricsPath())
	}

	reg := registry.New(store,
		awsapi.Options{Region: config.Region, SSORegion: config.SSORegion},
		registry.WithMetrics(instrumentation.NewCacheRecorder(instrumentationProvider.Metrics())),
	)

	serverConfig := server.NewDefaultConfig()
	serverConfig.Version = rootCmd.Version
	serverConfig.SecretsPath = config.SecretsPath
	serverConfig.Region = config.Region
	serverConfig.SSORegion = config.SSORegion
	serverConfig.LogLevel = config.LogLevel
	serverConfig.LogFormat = config.LogFormat

	serverContextOptions := []server.Option{
		server.WithStore(store),
		server.WithRegistry(reg),
		server.WithLogger(server.NewSlogLogger(logger)),
		server.WithConfig(serverConfig),
		server.WithInstrumentationProvider(instrumentationProvider),
	}

	// The identity-ops module registers itself when compiled in; without it
	// verify_email and reset_password report the capability as unavailable.
	if factory, ok := capability.Lookup(capability.IdentityOps); ok {
		if identityOps, ok := factory.(awsapi.IdentityOpsFactory); ok {
			serverContextOptions = append(serverContextOptions, server.WithIdentityOps(identityOps))
			logger.Info("identity-ops module available")
		}
	}

	serverContext, err := server.NewServerContext(shutdownCtx, serverContextOptions...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.KeyError, err.Error())
		}
	}()

	// SIGHUP reloads the secrets file and invalidates cached client bundles.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-shutdownCtx.Done():
				return
			case <-hup:
				// Reload logs its own outcome and keeps the previous
				// credential set on failure.
				_ = serverContext.Reload()
			}
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer(serverConfig.ServerName, rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
	)

	// Register all tool categories
	if err := health.RegisterHealthTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register health tools: %w", err)
	}
	if err := orgs.RegisterOrgTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register organization tools: %w", err)
	}
	if err := users.RegisterUserTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register user tools: %w", err)
	}
	if err := tags.RegisterTagTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register tag tools: %w", err)
	}
	if err := budget.RegisterBudgetTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register budget tools: %w", err)
	}

	// Start the appropriate server based on transport type
	switch config.Transport {
	case transportStdio:
		// Don't log startup for stdio mode as stdout carries the MCP stream.
		return runStdioServer(mcpSrv)
	case transportSSE:
		logger.Info("starting MCP server", logging.KeyTransport, config.Transport)
		return runSSEServer(shutdownCtx, mcpSrv, config, logger)
	case transportStreamableHTTP:
		logger.Info("starting MCP server", logging.KeyTransport, config.Transport)
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, config, serverContext, instrumentationProvider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", config.Transport)
	}
}
