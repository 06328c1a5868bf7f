package config

import "fmt"

// pemSource is one piece of TLS material that may come from a file or inline content
type pemSource struct {
	name    string
	file    string
	content string
}

func (p pemSource) present() bool { return p.file != "" || p.content != "" }

func (p pemSource) ambiguous() bool { return p.file != "" && p.content != "" }

func (t TLSConfig) certSource() pemSource {
	return pemSource{name: "cert", file: t.CertFile, content: t.CertContent}
}

func (t TLSConfig) keySource() pemSource {
	return pemSource{name: "key", file: t.KeyFile, content: t.KeyContent}
}

func (t TLSConfig) caSource() pemSource {
	return pemSource{name: "ca", file: t.CAFile, content: t.CAContent}
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}
	if err := validateTLSVersion(tls.MinVersion); err != nil {
		return err
	}
	if tls.AutoReload.Enabled && tls.AutoReload.DebounceDelay < 0 {
		return fmt.Errorf("TLS autoReload debounceDelay must not be negative")
	}
	return nil
}

func validateTLSMode(tls TLSConfig) error {
	switch tls.Mode {
	case "disabled", "":
		return nil
	case "server":
		return validateServerModeTLS(tls)
	case "mutual":
		return validateMutualModeTLS(tls)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}
}

func validateServerModeTLS(tls TLSConfig) error {
	return validateSources("server mode", tls.certSource(), tls.keySource())
}

func validateMutualModeTLS(tls TLSConfig) error {
	if err := validateSources("mutual mode", tls.certSource(), tls.keySource(), tls.caSource()); err != nil {
		return err
	}
	return validateClientAuthPolicy(tls.ClientAuthPolicy)
}

// validateSources requires every source to be present from exactly one origin
func validateSources(mode string, sources ...pemSource) error {
	for _, src := range sources {
		if !src.present() {
			return fmt.Errorf("TLS %s is required for %s (provide either %sFile or %sContent)", src.name, mode, src.name, src.name)
		}
		if src.ambiguous() {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", src.name, src.name)
		}
	}
	return nil
}

func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

func validateTLSVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", version)
	}
}
