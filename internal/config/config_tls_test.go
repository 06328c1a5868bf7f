package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTLSMode(t *testing.T) {
	tests := []struct {
		name     string
		tls      TLSConfig
		errorMsg string
	}{
		{name: "disabled mode", tls: TLSConfig{Mode: "disabled"}},
		{name: "empty mode behaves as disabled", tls: TLSConfig{}},
		{
			name: "server mode with files",
			tls:  TLSConfig{Mode: "server", CertFile: "/path/to/cert.pem", KeyFile: "/path/to/key.pem"},
		},
		{
			name: "server mode with content",
			tls:  TLSConfig{Mode: "server", CertContent: "cert", KeyContent: "key"},
		},
		{
			name:     "server mode missing key",
			tls:      TLSConfig{Mode: "server", CertFile: "/path/to/cert.pem"},
			errorMsg: "TLS key is required for server mode",
		},
		{
			name:     "server mode duplicate cert source",
			tls:      TLSConfig{Mode: "server", CertFile: "/c.pem", CertContent: "cert", KeyFile: "/k.pem"},
			errorMsg: "cannot specify both certFile and certContent",
		},
		{
			name: "mutual mode valid",
			tls: TLSConfig{
				Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem", ClientAuthPolicy: "verify",
			},
		},
		{
			name:     "mutual mode missing CA",
			tls:      TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem"},
			errorMsg: "TLS ca is required for mutual mode",
		},
		{
			name:     "mutual mode duplicate CA source",
			tls:      TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem", CAContent: "ca"},
			errorMsg: "cannot specify both caFile and caContent",
		},
		{
			name:     "mutual mode bad policy",
			tls:      TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem", ClientAuthPolicy: "always"},
			errorMsg: "invalid clientAuthPolicy: always",
		},
		{name: "invalid mode", tls: TLSConfig{Mode: "invalid"}, errorMsg: "invalid TLS mode: invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTLSMode(tt.tls)
			if tt.errorMsg != "" {
				assert.ErrorContains(t, err, tt.errorMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateTLSVersion(t *testing.T) {
	for _, v := range []string{"", "1.2", "1.3"} {
		assert.NoError(t, validateTLSVersion(v), v)
	}
	assert.EqualError(t, validateTLSVersion("1.1"), "invalid TLS minVersion: 1.1 (must be '1.2' or '1.3')")
}

func TestValidateTLSConfig(t *testing.T) {
	cfg := &Config{}
	cfg.Server.TLS = TLSConfig{
		Mode:       "server",
		CertFile:   "/c.pem",
		KeyFile:    "/k.pem",
		MinVersion: "1.3",
		AutoReload: AutoReloadConfig{Enabled: true, DebounceDelay: -1},
	}
	assert.ErrorContains(t, cfg.ValidateTLSConfig(), "debounceDelay")

	cfg.Server.TLS.AutoReload.DebounceDelay = 0
	assert.NoError(t, cfg.ValidateTLSConfig())
}
