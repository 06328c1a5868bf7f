package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// TLS modes accepted in server.tls.mode
const (
	tlsModeDisabled = "disabled"
	tlsModeServer   = "server"
	tlsModeMutual   = "mutual"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	addr := httpServer.Addr

	switch s.TLSConfig.Mode {
	case tlsModeDisabled, "":
		fmt.Printf("Starting server on http://%s\n", addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
		return nil
	case tlsModeServer:
		fmt.Printf("Starting server with HTTPS (server-only TLS) on https://%s\n", addr)
		fmt.Println("TLS mode: Server-only (no client certificates required)")
	case tlsModeMutual:
		fmt.Printf("Starting server with mTLS (mutual TLS) on https://%s\n", addr)
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	if err := s.setupCertificateManager(); err != nil {
		return err
	}

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// setupCertificateManager loads the certificates; the file watcher only runs with auto reload on
func (s *Server) setupCertificateManager() error {
	certManager := NewCertificateManager(&s.TLSConfig, s.Observability.GetMetrics(), s.Logger)
	if err := certManager.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	s.CertificateManager = certManager

	if certManager.watcher != nil {
		fmt.Printf("Certificate auto-reload: ENABLED (debounce: %s)\n", s.TLSConfig.AutoReload.DebounceDelay)
		for _, f := range certManager.watcher.Files() {
			fmt.Printf("  - watching %s\n", f)
		}
	}
	return nil
}

// buildTLSConfig serves certificates through the manager so reloads apply to new handshakes
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	if s.CertificateManager == nil {
		return nil, fmt.Errorf("certificate manager not initialized")
	}

	base := &tls.Config{
		MinVersion:     tlsMinVersion(s.TLSConfig.MinVersion),
		GetCertificate: s.CertificateManager.GetCertificate,
	}
	if s.TLSConfig.Mode != tlsModeMutual {
		return base, nil
	}

	clientAuth, err := clientAuthType(s.TLSConfig.ClientAuthPolicy)
	if err != nil {
		return nil, err
	}
	base.ClientAuth = clientAuth
	base.ClientCAs = s.CertificateManager.GetCACertPool()

	// a fresh config per handshake picks up a reloaded CA pool
	base.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		cfg.ClientCAs = s.CertificateManager.GetCACertPool()
		return cfg, nil
	}
	return base, nil
}

func tlsMinVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthType(policy string) (tls.ClientAuthType, error) {
	switch policy {
	case "require", "":
		return tls.RequireAndVerifyClientCert, nil
	case "request":
		return tls.RequestClientCert, nil
	case "verify":
		return tls.VerifyClientCertIfGiven, nil
	default:
		return tls.NoClientCert, fmt.Errorf("invalid client auth policy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}
