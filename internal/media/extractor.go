// internal/media/extractor.go

package media

import (
	"fmt"
	"strings"

	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// FieldRule declares one place to look for media URLs inside a
// document. Paths use dot notation; a trailing "[]" on a segment walks
// every element of an array, e.g. "media[].url" or
// "virtualTour.scenes[].thumbnailUrl".
type FieldRule struct {
	Path string `yaml:"path" json:"path"`

	// DeclaredType fixes the expected media type for this field.
	DeclaredType Type `yaml:"declared_type,omitempty" json:"declared_type,omitempty"`

	// TypeFromField names a sibling field of the matched value that
	// carries the declared type, e.g. "type" next to "url" inside a
	// media list entry. Takes precedence over DeclaredType when the
	// sibling is present.
	TypeFromField string `yaml:"type_from_field,omitempty" json:"type_from_field,omitempty"`
}

// ExtractionRules is the declarative per-collection rule table. Unknown
// collections fall back to DefaultFields.
type ExtractionRules struct {
	Collections   map[string][]FieldRule `yaml:"collections" json:"collections"`
	DefaultFields []FieldRule            `yaml:"default_fields" json:"default_fields"`
}

// DefaultExtractionRules covers the marketplace collections and the
// common field names scanned for anything else.
func DefaultExtractionRules() ExtractionRules {
	return ExtractionRules{
		Collections: map[string][]FieldRule{
			"yacht_experiences": {
				{Path: "media[].url", TypeFromField: "type"},
				{Path: "virtualTour.scenes[].imageUrl", DeclaredType: TypeImage},
				{Path: "virtualTour.scenes[].thumbnailUrl", DeclaredType: TypeImage},
			},
			"yachts": {
				{Path: "media[].url", TypeFromField: "type"},
				{Path: "coverImage", DeclaredType: TypeImage},
			},
			"products_add_ons": {
				{Path: "media[].url", TypeFromField: "type"},
			},
			"promotions_and_offers": {
				{Path: "imageUrl", DeclaredType: TypeImage},
				{Path: "bannerUrl", DeclaredType: TypeImage},
			},
			"user_profiles_tourist": {
				{Path: "profilePhoto", DeclaredType: TypeImage},
			},
			"user_profiles_service_provider": {
				{Path: "profilePhoto", DeclaredType: TypeImage},
				{Path: "certifications[].documentUrl", DeclaredType: TypeDocument},
			},
			"articles_and_guides": {
				{Path: "imageUrl", DeclaredType: TypeImage},
				{Path: "media[].url", TypeFromField: "type"},
			},
		},
		DefaultFields: []FieldRule{
			{Path: "media[].url", TypeFromField: "type"},
			{Path: "imageUrl", DeclaredType: TypeImage},
			{Path: "thumbnailUrl", DeclaredType: TypeImage},
			{Path: "coverImage", DeclaredType: TypeImage},
			{Path: "profilePhoto", DeclaredType: TypeImage},
			{Path: "photoUrl", DeclaredType: TypeImage},
			{Path: "videoUrl", DeclaredType: TypeVideo},
		},
	}
}

// Extractor pulls media references out of raw document payloads using
// the rule table. Output order is deterministic: rule declaration
// order, then array index. That order is the scheduler's resume cursor.
type Extractor struct {
	rules ExtractionRules
	log   utils.Logger
}

// NewExtractor creates an extractor over a rule table.
func NewExtractor(rules ExtractionRules) *Extractor {
	return &Extractor{
		rules: rules,
		log:   utils.NewComponentLogger("extractor"),
	}
}

// RulesFor returns the field rules applied to a collection.
func (e *Extractor) RulesFor(collection string) []FieldRule {
	if rules, ok := e.rules.Collections[collection]; ok {
		return rules
	}
	return e.rules.DefaultFields
}

// TypeFieldPath derives the field path holding the declared type for a
// reference path, when the matching rule names one. "media[2].url" with
// a "type" sibling yields "media[2].type".
func (e *Extractor) TypeFieldPath(collection, fieldPath string) string {
	for _, rule := range e.RulesFor(collection) {
		if rule.TypeFromField == "" {
			continue
		}
		if pathMatchesRule(fieldPath, rule.Path) {
			return siblingPath(fieldPath, rule.TypeFromField)
		}
	}
	return ""
}

// Extract returns every media reference found in doc, in stable order.
// Malformed shapes under a rule are skipped and logged, never fatal.
func (e *Extractor) Extract(collection, documentID string, doc map[string]interface{}) []Reference {
	var refs []Reference
	for _, rule := range e.RulesFor(collection) {
		matches, err := expandRulePath(doc, rule.Path)
		if err != nil {
			e.log.WithFields(map[string]interface{}{
				"collection": collection,
				"document":   documentID,
				"path":       rule.Path,
			}).Warnf("skipping malformed field: %v", err)
			continue
		}

		for _, m := range matches {
			ref := Reference{
				Collection:   collection,
				DocumentID:   documentID,
				FieldPath:    m.path,
				DeclaredType: rule.DeclaredType,
			}
			if rule.TypeFromField != "" {
				ref.TypeFieldPath = siblingPath(m.path, rule.TypeFromField)
				if declared, ok := declaredTypeAt(doc, ref.TypeFieldPath); ok {
					ref.DeclaredType = declared
				}
			}

			switch v := m.value.(type) {
			case string:
				if strings.TrimSpace(v) == "" {
					ref.Missing = true
				} else {
					ref.URL = v
				}
			default:
				// Null or non-string values become missing markers
				// rather than being silently dropped.
				ref.Missing = true
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

// pathMatch is one concrete field resolved from a rule path.
type pathMatch struct {
	path  string
	value interface{}
}

// expandRulePath resolves a rule path against a document, expanding
// "[]" wildcards into concrete indices. Absent scalar fields produce no
// match; a non-array value under a "[]" segment is an error.
func expandRulePath(doc map[string]interface{}, rulePath string) ([]pathMatch, error) {
	return expandSegments(doc, strings.Split(rulePath, "."), "")
}

func expandSegments(current interface{}, segments []string, prefix string) ([]pathMatch, error) {
	if len(segments) == 0 {
		return []pathMatch{{path: prefix, value: current}}, nil
	}

	seg := segments[0]
	rest := segments[1:]

	m, ok := current.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("segment %q: parent is %T, not an object", seg, current)
	}

	if key, isArray := strings.CutSuffix(seg, "[]"); isArray {
		raw, present := m[key]
		if !present || raw == nil {
			return nil, nil
		}
		arr, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: expected array, got %T", key, raw)
		}
		var matches []pathMatch
		for i, elem := range arr {
			sub, err := expandSegments(elem, rest, fmt.Sprintf("%s%s[%d]", joinPrefix(prefix), key, i))
			if err != nil {
				return nil, err
			}
			matches = append(matches, sub...)
		}
		return matches, nil
	}

	value, present := m[seg]
	if !present {
		return nil, nil
	}
	return expandSegments(value, rest, joinPrefix(prefix)+seg)
}

func joinPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "."
}

// siblingPath replaces the last segment of a concrete field path with
// the named sibling field.
func siblingPath(fieldPath, sibling string) string {
	if i := strings.LastIndex(fieldPath, "."); i >= 0 {
		return fieldPath[:i+1] + sibling
	}
	return sibling
}

// pathMatchesRule checks a concrete indexed path against a rule path,
// treating "[]" as matching any index.
func pathMatchesRule(fieldPath, rulePath string) bool {
	fieldSegs, err := utils.ParseFieldPath(fieldPath)
	if err != nil {
		return false
	}
	ruleSegs := strings.Split(rulePath, ".")
	if len(fieldSegs) != len(ruleSegs) {
		return false
	}
	for i, ruleSeg := range ruleSegs {
		key, isArray := strings.CutSuffix(ruleSeg, "[]")
		if fieldSegs[i].Key != key {
			return false
		}
		if isArray != (fieldSegs[i].Index >= 0) {
			return false
		}
	}
	return true
}

// declaredTypeAt reads and normalizes a declared media type from a
// document field.
func declaredTypeAt(doc map[string]interface{}, path string) (Type, bool) {
	raw, ok := utils.GetPath(doc, path)
	if !ok {
		return TypeUnknown, false
	}
	s, ok := raw.(string)
	if !ok {
		return TypeUnknown, false
	}
	return NormalizeType(s), true
}

// NormalizeType maps free-form declared type strings from documents to
// a media type. Unrecognized values come back as unknown.
func NormalizeType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "img", "photo", "picture":
		return TypeImage
	case "video", "clip":
		return TypeVideo
	case "audio", "sound":
		return TypeAudio
	case "document", "doc", "pdf":
		return TypeDocument
	default:
		return TypeUnknown
	}
}
