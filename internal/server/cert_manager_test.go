package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedPEM returns a certificate valid for validFor and its private key
func selfSignedPEM(t *testing.T, validFor time.Duration) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func writeCertFiles(t *testing.T, dir string, validFor time.Duration) (certFile, keyFile string) {
	t.Helper()
	certPEM, keyPEM := selfSignedPEM(t, validFor)
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func testLogger() *errors.Logger {
	return errors.NewLogger(slog.LevelDebug)
}

func TestCertificateManagerLoadsFiles(t *testing.T) {
	certFile, keyFile := writeCertFiles(t, t.TempDir(), 30*24*time.Hour)
	cm := NewCertificateManager(&config.TLSConfig{
		Mode:     tlsModeServer,
		CertFile: certFile,
		KeyFile:  keyFile,
	}, nil, testLogger())
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	cert, err := cm.GetCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	assert.NotNil(t, cert)
	assert.Nil(t, cm.GetCACertPool())
	assert.Nil(t, cm.watcher)

	ttl, err := cm.CheckExpiry()
	require.NoError(t, err)
	assert.InDelta(t, (30 * 24 * time.Hour).Hours(), ttl.Hours(), 1)

	metrics := cm.GetMetrics()
	assert.Equal(t, int64(1), metrics.ReloadCount)
	assert.Equal(t, int64(1), metrics.ReloadSuccessCount)
	assert.Empty(t, metrics.LastReloadError)
}

func TestCertificateManagerLoadsContent(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t, time.Hour)
	cm := NewCertificateManager(&config.TLSConfig{
		Mode:        tlsModeMutual,
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		CAContent:   string(certPEM),
		AutoReload:  config.AutoReloadConfig{Enabled: true},
	}, nil, testLogger())
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	assert.NotNil(t, cm.GetCACertPool())
	// inline material has nothing to watch
	assert.Nil(t, cm.watcher)
}

func TestCertificateManagerFailedReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertFiles(t, dir, time.Hour)
	cm := NewCertificateManager(&config.TLSConfig{
		Mode:     tlsModeServer,
		CertFile: certFile,
		KeyFile:  keyFile,
	}, nil, testLogger())
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	before, err := cm.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	require.Error(t, cm.ReloadCertificates())

	after, err := cm.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Same(t, before, after)

	metrics := cm.GetMetrics()
	assert.Equal(t, int64(2), metrics.ReloadCount)
	assert.Equal(t, int64(1), metrics.ReloadFailureCount)
	assert.NotEmpty(t, metrics.LastReloadError)
}

func TestCertificateManagerStartFailsWithoutCertificate(t *testing.T) {
	cm := NewCertificateManager(&config.TLSConfig{
		Mode:     tlsModeServer,
		CertFile: filepath.Join(t.TempDir(), "missing.crt"),
		KeyFile:  filepath.Join(t.TempDir(), "missing.key"),
	}, nil, testLogger())

	require.Error(t, cm.Start())
	_, err := cm.CheckExpiry()
	assert.Error(t, err)
}

func TestCertificateWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertFiles(t, dir, time.Hour)
	cm := NewCertificateManager(&config.TLSConfig{
		Mode:     tlsModeServer,
		CertFile: certFile,
		KeyFile:  keyFile,
		AutoReload: config.AutoReloadConfig{
			Enabled:       true,
			DebounceDelay: 50 * time.Millisecond,
		},
	}, nil, testLogger())
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	require.NotNil(t, cm.watcher)
	assert.True(t, cm.watcher.IsRunning())
	assert.Len(t, cm.watcher.Files(), 2)

	writeCertFiles(t, dir, 48*time.Hour)

	assert.Eventually(t, func() bool {
		ttl, err := cm.CheckExpiry()
		return err == nil && ttl > 24*time.Hour
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, cm.GetMetrics().ReloadSuccessCount, int64(2))

	require.NoError(t, cm.Stop())
	assert.False(t, cm.watcher.IsRunning())
}

func TestNewCertWatcherRejectsEmpty(t *testing.T) {
	_, err := NewCertWatcher(nil, 0, func() {}, testLogger())
	assert.Error(t, err)
}

func TestBuildTLSConfig(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t, time.Hour)

	tests := []struct {
		name       string
		tlsConfig  config.TLSConfig
		wantMin    uint16
		wantAuth   tls.ClientAuthType
		wantErr    bool
		wantCAPool bool
	}{
		{
			name:      "server defaults to TLS 1.2",
			tlsConfig: config.TLSConfig{Mode: tlsModeServer},
			wantMin:   tls.VersionTLS12,
			wantAuth:  tls.NoClientCert,
		},
		{
			name:      "server with TLS 1.3",
			tlsConfig: config.TLSConfig{Mode: tlsModeServer, MinVersion: "1.3"},
			wantMin:   tls.VersionTLS13,
			wantAuth:  tls.NoClientCert,
		},
		{
			name:       "mutual requires client certs",
			tlsConfig:  config.TLSConfig{Mode: tlsModeMutual, ClientAuthPolicy: "require"},
			wantMin:    tls.VersionTLS12,
			wantAuth:   tls.RequireAndVerifyClientCert,
			wantCAPool: true,
		},
		{
			name:       "mutual verify if given",
			tlsConfig:  config.TLSConfig{Mode: tlsModeMutual, ClientAuthPolicy: "verify"},
			wantMin:    tls.VersionTLS12,
			wantAuth:   tls.VerifyClientCertIfGiven,
			wantCAPool: true,
		},
		{
			name:      "mutual with unknown policy",
			tlsConfig: config.TLSConfig{Mode: tlsModeMutual, ClientAuthPolicy: "sometimes"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.tlsConfig.CertContent = string(certPEM)
			tt.tlsConfig.KeyContent = string(keyPEM)
			tt.tlsConfig.CAContent = string(certPEM)

			s := &Server{TLSConfig: tt.tlsConfig, Logger: testLogger()}
			s.CertificateManager = NewCertificateManager(&s.TLSConfig, nil, s.Logger)
			require.NoError(t, s.CertificateManager.ReloadCertificates())

			cfg, err := s.buildTLSConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, cfg.MinVersion)
			assert.Equal(t, tt.wantAuth, cfg.ClientAuth)
			assert.NotNil(t, cfg.GetCertificate)
			assert.Equal(t, tt.wantCAPool, cfg.ClientCAs != nil)

			if tt.wantCAPool {
				perHandshake, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{})
				require.NoError(t, err)
				assert.NotNil(t, perHandshake.ClientCAs)
				assert.Nil(t, perHandshake.GetConfigForClient)
			}
		})
	}
}
