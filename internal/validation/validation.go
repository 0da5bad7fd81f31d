package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidSubdomain is returned when a subdomain doesn't match the required format
	ErrInvalidSubdomain = errors.New("invalid subdomain format")

	// ErrSubdomainTooShort is returned when a subdomain is too short
	ErrSubdomainTooShort = errors.New("subdomain must be at least 3 characters")

	// ErrSubdomainTooLong is returned when a subdomain is too long
	ErrSubdomainTooLong = errors.New("subdomain must be at most 63 characters")

	// ErrSubdomainReserved is returned for labels the platform keeps for itself
	ErrSubdomainReserved = errors.New("subdomain is reserved")

	// subdomainRegex validates DNS-label format: starts and ends with
	// alphanumeric, can contain hyphens in the middle
	subdomainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

	reservedSubdomains = map[string]bool{
		"www":   true,
		"api":   true,
		"app":   true,
		"admin": true,
	}
)

// ValidateSubdomain validates a tenant subdomain:
// - 3-63 characters, lowercase alphanumeric with inner hyphens
// - must not be a reserved platform label
func ValidateSubdomain(subdomain string) error {
	subdomain = NormalizeSubdomain(subdomain)

	if len(subdomain) < 3 {
		return ErrSubdomainTooShort
	}
	if len(subdomain) > 63 {
		return ErrSubdomainTooLong
	}

	if !subdomainRegex.MatchString(subdomain) {
		return ErrInvalidSubdomain
	}

	if reservedSubdomains[subdomain] {
		return ErrSubdomainReserved
	}

	return nil
}

// NormalizeSubdomain lowercases and trims a subdomain label
func NormalizeSubdomain(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}

// ValidateResourceName validates human-readable names (tenants, tags, API keys)
func ValidateResourceName(name string, maxLen int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > maxLen {
		return errors.New("name is too long")
	}
	return nil
}
