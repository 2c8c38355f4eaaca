package authfilter

import "strings"

// DefaultWhitelist holds the token lifecycle endpoints. They must stay
// reachable with an expired access token.
var DefaultWhitelist = []string{
	"/v1/user/auth/refresh",
	"/v1/user/auth/logout",
}

// Whitelist is a fixed set of path prefixes exempt from token inspection.
// It is read-only after NewWhitelist and safe for concurrent use.
type Whitelist struct {
	prefixes []string
}

// NewWhitelist copies prefixes; empty entries are dropped since they would
// match every path.
func NewWhitelist(prefixes ...string) Whitelist {
	kept := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return Whitelist{prefixes: kept}
}

// Matches reports whether path starts with any whitelisted prefix.
func (w Whitelist) Matches(path string) bool {
	for _, p := range w.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the configured prefixes.
func (w Whitelist) Prefixes() []string {
	out := make([]string, len(w.prefixes))
	copy(out, w.prefixes)
	return out
}
