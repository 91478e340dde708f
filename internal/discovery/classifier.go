package discovery

import (
	"path"
	"strings"
)

// DefaultIgnore lists directories that never hold indexable sources.
var DefaultIgnore = []string{
	".git", ".svn", ".hg", ".bundle", ".rbxref",
	"node_modules", "vendor/bundle", "tmp", "log", "coverage",
	"*.min.js", "*.lock",
}

// Ignored reports whether relPath (slash-separated, relative to the root)
// matches one of patterns. A pattern without a slash is matched against
// every path element; one with a slash against the leading elements of
// relPath.
func Ignored(relPath string, patterns []string) bool {
	elems := strings.Split(relPath, "/")
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			n := strings.Count(strings.Trim(p, "/"), "/") + 1
			if n <= len(elems) {
				if ok, _ := path.Match(strings.Trim(p, "/"), strings.Join(elems[:n], "/")); ok {
					return true
				}
			}
			continue
		}
		for _, e := range elems {
			if ok, _ := path.Match(p, e); ok {
				return true
			}
		}
	}
	return false
}
