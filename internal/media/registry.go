// internal/media/registry.go

package media

import (
	"fmt"
	"strings"

	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// Registry maps media types to their canonical placeholder URLs and
// answers membership questions. Historical modules scattered literal
// placeholder tables across the codebase; the registry is the single
// injected value that replaces them, populated from configuration.
type Registry struct {
	byType map[Type]string

	// members holds every known placeholder in normalized form,
	// including legacy variants that canonicalize to a current entry.
	members map[string]Type
}

// NewRegistry builds a registry from a type → placeholder URL map.
// Every entry must be an absolute http(s) URL.
func NewRegistry(placeholders map[Type]string) (*Registry, error) {
	if len(placeholders) == 0 {
		return nil, fmt.Errorf("placeholder registry cannot be empty")
	}

	r := &Registry{
		byType:  make(map[Type]string, len(placeholders)),
		members: make(map[string]Type, len(placeholders)),
	}
	for kind, rawURL := range placeholders {
		if !utils.IsAbsoluteHTTP(rawURL) {
			return nil, fmt.Errorf("placeholder for %s must be an absolute http(s) URL, got %q", kind, rawURL)
		}
		normalized, err := utils.NormalizeURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder URL for %s: %w", kind, err)
		}
		r.byType[kind] = rawURL
		r.members[normalized] = kind
	}
	return r, nil
}

// Get returns the canonical placeholder URL for a media type. Unknown
// types fall back to the image placeholder.
func (r *Registry) Get(kind Type) string {
	if u, ok := r.byType[kind]; ok {
		return u
	}
	return r.byType[TypeImage]
}

// IsPlaceholder reports whether rawURL is a registered placeholder,
// tolerating the known misformatted variants Canonicalize repairs.
func (r *Registry) IsPlaceholder(rawURL string) bool {
	_, ok := r.lookup(rawURL)
	return ok
}

// TypeOf returns the declared media type of a placeholder URL.
func (r *Registry) TypeOf(rawURL string) (Type, bool) {
	return r.lookup(rawURL)
}

// Canonicalize maps known-but-misformatted placeholder variants to the
// registered canonical URL. Non-placeholder URLs pass through unchanged.
func (r *Registry) Canonicalize(rawURL string) string {
	if kind, ok := r.lookup(rawURL); ok {
		return r.byType[kind]
	}
	return rawURL
}

// lookup matches rawURL against the registry, accepting three legacy
// variants seen in historical data: scheme-relative ("//host/x"),
// scheme-less ("host/x"), and bare-path dev references whose final path
// segments match a registered placeholder.
func (r *Registry) lookup(rawURL string) (Type, bool) {
	candidates := []string{rawURL}
	if strings.HasPrefix(rawURL, "//") {
		candidates = append(candidates, "https:"+rawURL)
	} else if utils.URLScheme(rawURL) == "" && !strings.HasPrefix(rawURL, "/") {
		candidates = append(candidates, "https://"+rawURL)
	}

	for _, candidate := range candidates {
		normalized, err := utils.NormalizeURL(candidate)
		if err != nil {
			continue
		}
		if kind, ok := r.members[normalized]; ok {
			return kind, true
		}
	}

	// Legacy dev builds referenced placeholders by path only, e.g.
	// "/placeholders/yacht-placeholder.jpg".
	if strings.HasPrefix(rawURL, "/") {
		suffix := strings.TrimSuffix(rawURL, "/")
		for member, kind := range r.members {
			if strings.HasSuffix(member, suffix) {
				return kind, true
			}
		}
	}

	return TypeUnknown, false
}
