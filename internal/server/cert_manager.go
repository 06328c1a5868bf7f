package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/observability"
)

const expiryReportInterval = time.Minute

// CertificateManager holds the server's TLS material and swaps it on reload
type CertificateManager struct {
	mu sync.RWMutex

	serverCert   *tls.Certificate
	caCertPool   *x509.CertPool
	serverExpiry time.Time

	config  *config.TLSConfig
	watcher *CertWatcher
	metrics *observability.Metrics
	logger  *errors.Logger

	reloadCount        int64
	reloadSuccessCount int64
	reloadFailureCount int64
	lastReloadTime     time.Time
	lastReloadError    string

	stop     chan struct{}
	stopOnce sync.Once
}

// CertificateMetrics holds metrics about certificate operations
type CertificateMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadError    string
}

// NewCertificateManager creates a manager for tlsConfig; metrics may be nil
func NewCertificateManager(tlsConfig *config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) *CertificateManager {
	if metrics == nil {
		metrics = &observability.Metrics{}
	}
	return &CertificateManager{
		config:  tlsConfig,
		metrics: metrics,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start loads the certificates and, when auto reload is on, watches the files
func (cm *CertificateManager) Start() error {
	if err := cm.ReloadCertificates(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	go cm.reportExpiry()

	files := cm.watchedFiles()
	if !cm.config.AutoReload.Enabled || len(files) == 0 {
		return nil
	}

	watcher, err := NewCertWatcher(files, cm.config.AutoReload.DebounceDelay, cm.triggerReload, cm.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	cm.watcher = watcher
	return nil
}

// Stop stops the file watcher and expiry reporting
func (cm *CertificateManager) Stop() error {
	cm.stopOnce.Do(func() { close(cm.stop) })

	if cm.watcher != nil {
		if err := cm.watcher.Stop(); err != nil {
			cm.logger.LogError(err, "Failed to stop certificate watcher")
			return err
		}
	}
	cm.logger.Info("Certificate manager stopped")
	return nil
}

// GetCertificate serves the current certificate to TLS handshakes
func (cm *CertificateManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if time.Now().After(cm.serverExpiry) {
		cm.logger.Warn("Serving expired certificate",
			"expiry", cm.serverExpiry,
			"server_name", hello.ServerName)
	}
	return cm.serverCert, nil
}

// GetCACertPool returns the current client CA pool, nil outside mutual mode
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// ReloadCertificates loads the certificate, key and CA and swaps them in atomically
func (cm *CertificateManager) ReloadCertificates() error {
	cert, expiry, err := cm.loadServerCertificate()
	if err == nil {
		var pool *x509.CertPool
		if pool, err = cm.loadCACertPool(); err == nil {
			cm.mu.Lock()
			cm.serverCert = cert
			cm.serverExpiry = expiry
			cm.caCertPool = pool
			cm.mu.Unlock()
		}
	}

	cm.recordReload(err)
	if err != nil {
		return err
	}

	cm.logger.Info("Certificates loaded", "server_cert_expiry", expiry)
	cm.metrics.RecordCertExpiry(context.Background(), "server", expiry)
	return nil
}

// CheckExpiry returns the time until the server certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverExpiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cm.serverExpiry), nil
}

// GetMetrics returns certificate management metrics
func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return CertificateMetrics{
		ReloadCount:        cm.reloadCount,
		ReloadSuccessCount: cm.reloadSuccessCount,
		ReloadFailureCount: cm.reloadFailureCount,
		LastReloadTime:     cm.lastReloadTime,
		LastReloadError:    cm.lastReloadError,
	}
}

func (cm *CertificateManager) loadServerCertificate() (*tls.Certificate, time.Time, error) {
	var cert tls.Certificate
	var err error
	if cm.config.CertContent != "" && cm.config.KeyContent != "" {
		cert, err = tls.X509KeyPair([]byte(cm.config.CertContent), []byte(cm.config.KeyContent))
	} else {
		cert, err = tls.LoadX509KeyPair(cm.config.CertFile, cm.config.KeyFile)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load server certificate: %w", err)
	}
	if len(cert.Certificate) == 0 {
		return nil, time.Time{}, fmt.Errorf("server certificate is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	return &cert, leaf.NotAfter, nil
}

func (cm *CertificateManager) loadCACertPool() (*x509.CertPool, error) {
	if cm.config.Mode != "mutual" {
		return nil, nil
	}

	caCert := []byte(cm.config.CAContent)
	if len(caCert) == 0 {
		var err error
		if caCert, err = os.ReadFile(cm.config.CAFile); err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// watchedFiles lists file-based material; inline content is never watched
func (cm *CertificateManager) watchedFiles() []string {
	var files []string
	if cm.config.CertContent == "" && cm.config.CertFile != "" {
		files = append(files, cm.config.CertFile)
	}
	if cm.config.KeyContent == "" && cm.config.KeyFile != "" {
		files = append(files, cm.config.KeyFile)
	}
	if cm.config.Mode == "mutual" && cm.config.CAContent == "" && cm.config.CAFile != "" {
		files = append(files, cm.config.CAFile)
	}
	return files
}

func (cm *CertificateManager) recordReload(err error) {
	cm.mu.Lock()
	cm.reloadCount++
	cm.lastReloadTime = time.Now()
	if err != nil {
		cm.reloadFailureCount++
		cm.lastReloadError = err.Error()
	} else {
		cm.reloadSuccessCount++
		cm.lastReloadError = ""
	}
	cm.mu.Unlock()

	cm.metrics.RecordCertReload(context.Background(), "server", err == nil)
}

// triggerReload is called by the watcher; a failed reload keeps the previous certificates
func (cm *CertificateManager) triggerReload() {
	cm.logger.Info("Certificate files changed, reloading")
	if err := cm.ReloadCertificates(); err != nil {
		cm.logger.LogError(err, "Failed to reload certificates, keeping previous ones")
	}
}

// reportExpiry publishes the seconds left on the certificate until Stop
func (cm *CertificateManager) reportExpiry() {
	ticker := time.NewTicker(expiryReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.mu.RLock()
			expiry := cm.serverExpiry
			cm.mu.RUnlock()
			cm.metrics.RecordCertExpiry(context.Background(), "server", expiry)
		case <-cm.stop:
			return
		}
	}
}
