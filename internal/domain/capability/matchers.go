package capability

import (
	"path/filepath"
	"strings"
)

// Pure predicate helpers used by the checkers. Throughout, an empty
// allow-list means "no restriction" - a declared but empty list never
// locks a plugin out of something the action flag already grants.

// ColumnsAllowed reports whether every requested column is in the allowed
// set. An empty allowed set is unrestricted.
func ColumnsAllowed(requested, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	set := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		set[strings.ToLower(c)] = true
	}
	for _, c := range requested {
		if !set[strings.ToLower(c)] {
			return false
		}
	}
	return true
}

// ValueAllowed reports whether v is in the allowed list, case-insensitive.
// An empty list is unrestricted.
func ValueAllowed(v string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// PortAllowed reports whether port is in the allowed list. An empty list is
// unrestricted.
func PortAllowed(port int, allowed []int) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, p := range allowed {
		if p == port {
			return true
		}
	}
	return false
}

// HostMatches reports whether host matches a single declared pattern.
// A leading "*." wildcard matches any subdomain of the suffix, but not the
// apex itself: "*.stripe.com" matches "api.stripe.com", not "stripe.com".
func HostMatches(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	host = strings.ToLower(strings.TrimSpace(host))
	if pattern == "" || host == "" {
		return false
	}
	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(host, "."+suffix)
	}
	return pattern == host
}

// HostAllowed reports whether host matches any declared pattern. An empty
// pattern list is unrestricted.
func HostAllowed(host string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if HostMatches(p, host) {
			return true
		}
	}
	return false
}

// URLPathAllowed reports whether a URL path matches any declared pattern.
// A pattern of "*" matches everything; a trailing "*" matches by prefix;
// anything else must match exactly. An empty list is unrestricted.
func URLPathAllowed(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	if p == "" {
		p = "/"
	}
	for _, pattern := range patterns {
		if pattern == "*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(p, prefix) {
				return true
			}
			continue
		}
		if p == pattern {
			return true
		}
	}
	return false
}

// PathInSandbox reports whether a requested filesystem path, normalized
// against the sandbox base directory, falls inside the sandbox and matches
// one of the declared path patterns. Relative requests are resolved against
// baseDir; an empty pattern list admits the whole subtree.
//
// Patterns are relative to baseDir: "**" admits everything, "logs/**"
// admits a subtree, anything else is a filepath.Match glob on the relative
// path.
func PathInSandbox(requested, baseDir string, patterns []string) bool {
	if baseDir == "" {
		return false
	}
	base := filepath.Clean(baseDir)
	p := filepath.Clean(requested)
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}

	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	if len(patterns) == 0 {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if pattern == "**" {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			continue
		}
		if ok, matchErr := filepath.Match(pattern, rel); matchErr == nil && ok {
			return true
		}
		if rel == pattern {
			return true
		}
	}
	return false
}
