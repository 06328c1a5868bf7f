package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"resumelens/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault
type VaultSecrets struct {
	SessionSecret string `mapstructure:"sessionSecret"` // KVv2 path holding the cookie signing key under "secret"
	TLSCerts      string `mapstructure:"tlsCerts"`      // KVv2 path holding "cert", "key" and "ca" PEM content
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient creates a new Vault client from configuration.
// It returns a nil client when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	logger.Debug("Initializing Vault client",
		"address", config.Address,
		"namespace", config.Namespace,
		"token_file", config.TokenFile,
		"has_token", config.Token != "")

	client, err := createVaultAPIClient(config, logger)
	if err != nil {
		return nil, err
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)
	logger.Debug("Vault token configured", "token_prefix", token[:min(len(token), 8)]+"...")

	if err := testVaultConnection(client, config.Address, logger); err != nil {
		return nil, err
	}

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

func createVaultAPIClient(config VaultConfig, logger *errors.Logger) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		logger.LogError(err, "Failed to create Vault client")
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
		logger.Debug("Set Vault namespace", "namespace", config.Namespace)
	}

	return client, nil
}

// resolveVaultToken prefers the inline token and falls back to the token file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		logger.Debug("Reading Vault token from file", "file", config.TokenFile)
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			logger.LogError(err, "Failed to read Vault token file", "file", config.TokenFile)
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

func testVaultConnection(client *api.Client, address string, logger *errors.Logger) error {
	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", address)
		return fmt.Errorf("failed to connect to vault: %w", err)
	}

	logger.Info("Successfully connected to Vault",
		"address", address,
		"version", health.Version,
		"sealed", health.Sealed,
		"cluster_name", health.ClusterName)
	return nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	vc.logger.Debug("Reading secret from Vault", "path", path)

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		vc.logger.LogError(err, "Failed to read secret from Vault", "path", path)
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		vc.logger.Warn("Secret not found at path", "path", path)
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return decodeKVv2(secret.Data, path)
}

// decodeKVv2 unpacks the data/metadata envelope of a KVv2 read
func decodeKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the numeric encodings Vault and JSON decoding produce
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key, vc.logger)
}

func stringField(secret *VaultSecret, path, key string, logger *errors.Logger) (string, error) {
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	logger.Debug("String secret retrieved from Vault",
		"path", path,
		"key", key,
		"version", secret.Version,
		"masked_value", maskSecret(strValue))
	return strValue, nil
}

func maskSecret(value string) string {
	switch {
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	case value != "":
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config.
// Vault values replace whatever the file or environment provided.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	logger.Info("Loading secrets from Vault",
		"session_secret_path", config.Vault.Secrets.SessionSecret,
		"tls_certs_path", config.Vault.Secrets.TLSCerts)

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize Vault client")
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	if client == nil {
		return nil
	}

	if err := loadSessionSecretFromVault(client, config, logger); err != nil {
		return err
	}
	if err := loadTLSCertsFromVault(client, config, logger); err != nil {
		return err
	}

	logger.Info("Successfully completed applying secrets from Vault")
	return nil
}

func loadSessionSecretFromVault(client *VaultClient, config *Config, logger *errors.Logger) error {
	path := config.Vault.Secrets.SessionSecret
	if path == "" {
		return nil
	}

	secret, err := client.GetStringSecret(path, "secret")
	if err != nil {
		logger.LogError(err, "Failed to load session secret from Vault", "path", path)
		return fmt.Errorf("failed to load session secret from vault: %w", err)
	}
	if err := applySessionSecret(config, secret); err != nil {
		return err
	}

	logger.Info("Session secret loaded from Vault")
	return nil
}

func applySessionSecret(config *Config, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("vault session secret is empty")
	}
	if len(secret) < MinSessionSecretLength {
		return fmt.Errorf("vault session secret must be at least %d bytes", MinSessionSecretLength)
	}
	config.Session.Secret = secret
	return nil
}

func loadTLSCertsFromVault(client *VaultClient, config *Config, logger *errors.Logger) error {
	path := config.Vault.Secrets.TLSCerts
	if path == "" {
		return nil
	}

	tlsData, err := client.GetSecretV2(path)
	if err != nil {
		logger.LogError(err, "Failed to load TLS certificates from Vault", "path", path)
		return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
	}

	if err := rejectTLSFilePathFields(tlsData); err != nil {
		return err
	}

	certCount := applyTLSContent(config, tlsData, logger)
	logger.Info("TLS certificates loaded from Vault", "certificates_loaded", certCount, "version", tlsData.Version)
	return nil
}

// applyTLSContent copies PEM content into the TLS config and clears the
// matching file paths so the two sources never conflict.
func applyTLSContent(config *Config, tlsData *VaultSecret, logger *errors.Logger) int {
	tls := &config.Server.TLS
	fields := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &tls.CertContent, &tls.CertFile},
		{"key", &tls.KeyContent, &tls.KeyFile},
		{"ca", &tls.CAContent, &tls.CAFile},
	}

	count := 0
	for _, f := range fields {
		content, ok := tlsData.Data[f.key].(string)
		if !ok || content == "" {
			continue
		}
		*f.content = content
		*f.file = ""
		logger.Debug("TLS material loaded from Vault", "field", f.key, "content_length", len(content))
		count++
	}
	return count
}

// rejectTLSFilePathFields refuses secrets that store file paths instead of PEM content
func rejectTLSFilePathFields(tlsData *VaultSecret) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, has := tlsData.Data[field]; has {
			return fmt.Errorf("vault TLS configuration error: '%s' field is not supported. Store certificate content in '%s' field instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}
	return nil
}
