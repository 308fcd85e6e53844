// Package urlnorm normalizes request URLs into the canonical form used
// everywhere a path is stored or matched: redirect rules, client error
// records and the ignore list. Rules saved and requests looked up must go
// through the same function or matches silently fail.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalized is the canonical form of a request URL. Path carries no query
// string; RawQuery keeps the original query so redirects can re-append it.
type Normalized struct {
	Path     string
	RawQuery string
}

// Normalize converts a raw request URL or path into its canonical form:
// lowercased rooted path, no scheme/host, duplicate slashes collapsed,
// trailing slash stripped (root stays "/"), fragment dropped, query split
// off into RawQuery.
func Normalize(raw string) Normalized {
	if raw == "" {
		return Normalized{Path: "/"}
	}

	var rawQuery string
	if u, err := url.Parse(raw); err == nil {
		raw = u.EscapedPath()
		rawQuery = u.RawQuery
	} else {
		// Unparseable input: best effort, split query manually.
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			rawQuery = raw[i+1:]
			raw = raw[:i]
		}
	}

	p := strings.ToLower(raw)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}

	return Normalized{Path: p, RawQuery: rawQuery}
}

// Path is a shorthand for Normalize(raw).Path.
func Path(raw string) string {
	return Normalize(raw).Path
}
