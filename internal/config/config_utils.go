package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"resumelens/internal/errors"
)

// MinSessionSecretLength is the minimum accepted HMAC key length for session cookies
const MinSessionSecretLength = 32

// applyFallbacks fills in values derived from other settings
func (c *Config) applyFallbacks() {
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	// Cookies sent over TLS should never be downgraded to plain HTTP
	if c.Server.TLS.Mode != "disabled" && c.Server.TLS.Mode != "" {
		c.Session.Secure = true
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// EnsureSessionSecret generates a random session secret when none was configured.
// It must run after ApplyVaultSecrets so a Vault-provided secret wins.
func (c *Config) EnsureSessionSecret(logger *errors.Logger) error {
	if c.Session.Secret != "" {
		if len(c.Session.Secret) < MinSessionSecretLength {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("session secret must be at least %d bytes", MinSessionSecretLength), nil)
		}
		return nil
	}

	buf := make([]byte, MinSessionSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidConfig, "failed to generate session secret", err)
	}
	c.Session.Secret = hex.EncodeToString(buf)

	logger.Warn("No session secret configured, generated an ephemeral one; sessions will not survive a restart",
		"hint", "set RESUMELENS_SESSION_SECRET or vault.secrets.sessionSecret")
	return nil
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMELENS_BACKEND_BASEURL",
		"RESUMELENS_SESSION_SECRET",
		"RESUMELENS_SESSION_STORE",
		"RESUMELENS_SERVER_PORT",
		"RESUMELENS_SERVER_HOST",
		"RESUMELENS_APP_LOGLEVEL",
		"RESUMELENS_VAULT_ENABLED",
		"RESUMELENS_VAULT_TOKEN",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Backend URL: %s", c.Backend.BaseURL)
	log.Printf("[CONFIG] Backend Timeout: %s (match: %s)", c.Backend.Timeout, c.Backend.MatchTimeout)
	log.Printf("[CONFIG] Circuit Breaker Enabled: %t", c.Backend.CircuitBreaker.Enabled)
	if c.Session.Secret != "" {
		log.Println("[CONFIG] Session Secret: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Session Secret: ***NOT SET***")
	}
	log.Printf("[CONFIG] Session Store: %s", c.Session.Store)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "secret") || strings.Contains(lower, "token") || strings.Contains(lower, "key")
}
