package providers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

/* Loader manages provider configuration from providers.yaml
 * Provides in-memory lookup for fast access. Secrets are resolved from
 * the environment at load time so the YAML file never carries them.
 */

// Config represents the structure of providers.yaml
type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents a single provider in the YAML file
type ProviderConfig struct {
	Name             string `yaml:"name"`
	SignatureHeader  string `yaml:"signature_header"`
	SecretEnv        string `yaml:"secret_env"`
	ToleranceSeconds int    `yaml:"tolerance_seconds"` // Optional: override global default
}

// Loader holds the loaded providers
type Loader struct {
	byName   map[string]*Provider
	byHeader map[string]*Provider
}

// NewLoader creates a new provider loader
func NewLoader() *Loader {
	return &Loader{
		byName:   make(map[string]*Provider),
		byHeader: make(map[string]*Provider),
	}
}

// Load reads and parses the providers.yaml file
func (l *Loader) Load(filePath string, defaultTolerance time.Duration) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading providers file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing providers YAML: %w", err)
	}

	for _, pc := range config.Providers {
		tolerance := defaultTolerance
		if pc.ToleranceSeconds > 0 {
			tolerance = time.Duration(pc.ToleranceSeconds) * time.Second
		}

		provider := &Provider{
			Name:            pc.Name,
			SignatureHeader: pc.SignatureHeader,
			Secret:          os.Getenv(pc.SecretEnv),
			Tolerance:       tolerance,
			SecretEnv:       pc.SecretEnv,
		}

		if err := provider.Validate(); err != nil {
			return fmt.Errorf("validating provider: %w", err)
		}

		l.byName[provider.Name] = provider
		l.byHeader[http.CanonicalHeaderKey(provider.SignatureHeader)] = provider
	}

	return nil
}

// Get retrieves a provider by its name
func (l *Loader) Get(name string) (*Provider, error) {
	provider, exists := l.byName[name]
	if !exists {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return provider, nil
}

// ByHeader retrieves the provider whose signature header is present in
// the given header set. Used to infer the sender for rate limiting.
func (l *Loader) ByHeader(headers http.Header) (*Provider, bool) {
	for header, provider := range l.byHeader {
		if headers.Get(header) != "" {
			return provider, true
		}
	}
	return nil, false
}

// List returns all loaded providers
func (l *Loader) List() []*Provider {
	providers := make([]*Provider, 0, len(l.byName))
	for _, provider := range l.byName {
		providers = append(providers, provider)
	}
	return providers
}

// Exists checks if a provider name exists
func (l *Loader) Exists(name string) bool {
	_, exists := l.byName[name]
	return exists
}
