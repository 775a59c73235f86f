// internal/utils/fieldpath.go

package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Field paths address values inside a raw document payload using dot
// notation with optional array indices, e.g. "media[2].url" or
// "virtualTour.scenes[0].thumbnailUrl".

// PathSegment is one step of a parsed field path.
type PathSegment struct {
	Key   string
	Index int // -1 when the segment carries no array index
}

// ParseFieldPath splits a dot path into segments. "media[2].url" becomes
// [{media 2} {url -1}].
func ParseFieldPath(path string) ([]PathSegment, error) {
	if path == "" {
		return nil, fmt.Errorf("field path cannot be empty")
	}

	parts := strings.Split(path, ".")
	segments := make([]PathSegment, 0, len(parts))
	for _, part := range parts {
		seg := PathSegment{Key: part, Index: -1}
		if open := strings.Index(part, "["); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("malformed path segment %q in %q", part, path)
			}
			idx, err := strconv.Atoi(part[open+1 : len(part)-1])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("malformed array index in segment %q of %q", part, path)
			}
			seg.Key = part[:open]
			seg.Index = idx
		}
		if seg.Key == "" {
			return nil, fmt.Errorf("empty key in path %q", path)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// GetPath resolves a field path against a document payload. The second
// return value is false when any step of the path is absent.
func GetPath(doc map[string]interface{}, path string) (interface{}, bool) {
	segments, err := ParseFieldPath(path)
	if err != nil {
		return nil, false
	}

	var current interface{} = doc
	for _, seg := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[seg.Key]
		if !ok {
			return nil, false
		}
		if seg.Index >= 0 {
			arr, ok := current.([]interface{})
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			current = arr[seg.Index]
		}
	}
	return current, true
}

// SetPath writes a value at a field path inside a document payload. All
// intermediate containers must already exist; repairs only rewrite
// fields that were previously extracted, so a missing step is an error.
func SetPath(doc map[string]interface{}, path string, value interface{}) error {
	segments, err := ParseFieldPath(path)
	if err != nil {
		return err
	}

	var current interface{} = doc
	for i, seg := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return fmt.Errorf("path %q: segment %q is not an object", path, seg.Key)
		}

		last := i == len(segments)-1
		if seg.Index < 0 {
			if last {
				m[seg.Key] = value
				return nil
			}
			current, ok = m[seg.Key]
			if !ok {
				return fmt.Errorf("path %q: missing segment %q", path, seg.Key)
			}
			continue
		}

		arr, ok := m[seg.Key].([]interface{})
		if !ok || seg.Index >= len(arr) {
			return fmt.Errorf("path %q: index %d out of range for %q", path, seg.Index, seg.Key)
		}
		if last {
			arr[seg.Index] = value
			return nil
		}
		current = arr[seg.Index]
	}
	return nil
}

// MongoFieldPath converts bracketed array notation to the driver's dot
// notation: "media[2].url" becomes "media.2.url".
func MongoFieldPath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '[':
			b.WriteByte('.')
		case ']':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
