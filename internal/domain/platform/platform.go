package platform

import (
	"fmt"
	"strings"

	"github.com/cassiomorais/marketsync/internal/domain/errors"
)

// Platform identifies one of the supported marketplaces.
type Platform string

const (
	EBay     Platform = "ebay"
	Facebook Platform = "facebook"
	Mercari  Platform = "mercari"
)

// All returns every supported platform in a stable order.
func All() []Platform {
	return []Platform{EBay, Facebook, Mercari}
}

// DisplayName returns the marketplace's human-readable name.
func (p Platform) DisplayName() string {
	switch p {
	case EBay:
		return "eBay"
	case Facebook:
		return "Facebook Marketplace"
	case Mercari:
		return "Mercari"
	default:
		return string(p)
	}
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case EBay, Facebook, Mercari:
		return true
	}
	return false
}

func (p Platform) String() string { return string(p) }

// Parse converts a platform identifier, case-insensitively.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%q: %w", s, errors.ErrUnknownPlatform)
	}
	return p, nil
}

// FromCallbackURL identifies the platform an OAuth callback URL belongs to.
func FromCallbackURL(url string) (Platform, bool) {
	lower := strings.ToLower(url)
	for _, p := range All() {
		if strings.Contains(lower, string(p)) {
			return p, true
		}
	}
	return "", false
}
