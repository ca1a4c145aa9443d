package providers

import (
	"fmt"
	"regexp"
	"time"
)

/* Provider represents a registered webhook sender
 * Maps a provider name to the signature header it uses and the shared
 * secret expected on its deliveries
 */
type Provider struct {
	Name             string
	SignatureHeader  string // e.g. "X-Signature" or "Stripe-Signature"
	Secret           string
	Tolerance        time.Duration // replay window for signed timestamps
	SecretEnv        string        // env var the secret was resolved from
}

// namePattern keeps provider names URL-safe: they appear as path params.
var namePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Validate checks if the provider configuration is valid
func (p *Provider) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if !namePattern.MatchString(p.Name) {
		return fmt.Errorf("provider name must contain only [a-z0-9_-]: %s", p.Name)
	}
	if p.SignatureHeader == "" {
		return fmt.Errorf("signature_header cannot be empty for provider %s", p.Name)
	}
	if p.Tolerance < 0 {
		return fmt.Errorf("tolerance cannot be negative for provider %s", p.Name)
	}
	return nil
}
