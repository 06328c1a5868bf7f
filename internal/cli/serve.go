package cli

import (
	"context"
	"fmt"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/observability"
	"resumelens/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start the server-rendered web interface. Browsers sign in with a session
cookie; the backend tokens stay on the server and are refreshed in the background.

Pages:
- GET /: Home
- GET /login, /register: Sign in and sign up
- GET /analyze: Upload a resume and review the analysis, rewrite and job match tabs
- GET /courses/{field}: Course recommendations
- GET /profile: Profile, password and analysis history
- GET /health: Health check including the backend
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("backend-url", "", "Backend API base URL (overrides config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")

	// Bind flags to viper config keys
	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("backend.baseurl", "backend-url")
	bindFlag("server.tls.mode", "tls-mode")
	bindFlag("server.tls.certfile", "cert-file")
	bindFlag("server.tls.keyfile", "key-file")
	bindFlag("server.tls.cafile", "ca-file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	// reload now that the bound flags are parsed
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return err
	}
	if err := cfg.EnsureSessionSecret(logger); err != nil {
		return err
	}

	// Validate TLS configuration after applying overrides and Vault content
	tempConfig := &config.Config{Server: cfg.Server}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	srv, err := server.NewServer(cfg, server.NewServerConfig(cfg, Version), om, logger)
	if err != nil {
		return err
	}
	return srv.Start()
}
