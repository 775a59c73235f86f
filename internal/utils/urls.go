// internal/utils/urls.go

package utils

import (
	"net/url"
	"strings"
)

// NormalizeURL normalizes a URL for consistent comparison: lowercased
// host, default ports and fragments stripped, query keys sorted.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = strings.TrimSuffix(u.Host, ":80")
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	return u.String(), nil
}

// IsAbsoluteHTTP reports whether rawURL is an absolute http or https URL.
func IsAbsoluteHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsRelativeURL reports whether rawURL has no scheme or is a path-style
// reference (/, ./, ../). Scheme-relative URLs (//host/x) count as
// relative: they cannot be fetched without a base.
func IsRelativeURL(rawURL string) bool {
	if strings.HasPrefix(rawURL, "/") ||
		strings.HasPrefix(rawURL, "./") ||
		strings.HasPrefix(rawURL, "../") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return u.Scheme == ""
}

// URLScheme returns the lowercase scheme of rawURL, or "" when absent or
// unparseable.
func URLScheme(rawURL string) string {
	if i := strings.Index(rawURL, ":"); i > 0 {
		scheme := rawURL[:i]
		for _, r := range scheme {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' ||
				r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
				return ""
			}
		}
		return strings.ToLower(scheme)
	}
	return ""
}

// ResolveRelativeURL joins a base URL and a relative reference. The base
// must be absolute.
func ResolveRelativeURL(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

// URLExtension returns the lowercase file extension of the URL path,
// without the leading dot, ignoring query and fragment.
func URLExtension(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	} else {
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
	}

	i := strings.LastIndex(path, ".")
	if i < 0 || i == len(path)-1 {
		return ""
	}
	ext := path[i+1:]
	if strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
