// Package media contains the domain model of the validation engine:
// media references, classification, the placeholder registry, and the
// per-collection reference extractor.
package media

import "time"

// Type categorizes a media asset.
type Type string

const (
	TypeImage    Type = "image"
	TypeVideo    Type = "video"
	TypeAudio    Type = "audio"
	TypeDocument Type = "document"
	TypeUnknown  Type = "unknown"
)

// ValidTypes returns the known media type values.
func ValidTypes() []Type {
	return []Type{TypeImage, TypeVideo, TypeAudio, TypeDocument, TypeUnknown}
}

// Reference identifies one media URL occurrence at a field path within
// one document. It is unique per (collection, document, field path)
// within a single scan pass.
type Reference struct {
	Collection   string `json:"collection"`
	DocumentID   string `json:"document_id"`
	FieldPath    string `json:"field_path"`
	URL          string `json:"url"`
	DeclaredType Type   `json:"declared_type,omitempty"`

	// Missing marks a field that held a null or non-string value. The
	// extractor emits a marker rather than dropping the field so that
	// reports can count it.
	Missing bool `json:"missing,omitempty"`

	// TypeFieldPath points at the sibling field the declared type was
	// read from, when the extraction rule named one. Repair uses it for
	// type corrections.
	TypeFieldPath string `json:"type_field_path,omitempty"`
}

// Outcome records the validation result for a single reference.
type Outcome struct {
	Reference    Reference `json:"reference"`
	IsValid      bool      `json:"is_valid"`
	DetectedType Type      `json:"detected_type,omitempty"`
	HTTPStatus   int       `json:"http_status,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	Missing      bool      `json:"missing,omitempty"`

	// Flagged marks the tolerated legacy case of a video asset stored
	// in an image-typed field: valid, but worth surfacing.
	Flagged bool `json:"flagged,omitempty"`

	Error string `json:"error,omitempty"`
}

// CollectionSummary aggregates outcomes for one collection.
type CollectionSummary struct {
	Collection   string `json:"collection"`
	Documents    int    `json:"documents"`
	TotalFields  int    `json:"total_fields"`
	ValidCount   int    `json:"valid_count"`
	InvalidCount int    `json:"invalid_count"`
	MissingCount int    `json:"missing_count"`
}

// ValidationReport is the immutable record of one validation run.
// ValidCount + InvalidCount + MissingCount always equals TotalFields.
type ValidationReport struct {
	ID              string              `json:"id" bson:"_id"`
	StartTime       time.Time           `json:"start_time" bson:"start_time"`
	EndTime         time.Time           `json:"end_time" bson:"end_time"`
	TotalDocuments  int                 `json:"total_documents" bson:"total_documents"`
	TotalFields     int                 `json:"total_fields" bson:"total_fields"`
	ValidCount      int                 `json:"valid_count" bson:"valid_count"`
	InvalidCount    int                 `json:"invalid_count" bson:"invalid_count"`
	MissingCount    int                 `json:"missing_count" bson:"missing_count"`
	PerCollection   []CollectionSummary `json:"per_collection" bson:"per_collection"`
	InvalidOutcomes []Outcome           `json:"invalid_outcomes" bson:"invalid_outcomes"`

	// Partial marks a best-effort report persisted after a fatal run
	// failure.
	Partial bool   `json:"partial,omitempty" bson:"partial,omitempty"`
	Error   string `json:"error,omitempty" bson:"error,omitempty"`
}

// RepairKind categorizes the fix applied to an invalid reference.
type RepairKind string

const (
	RepairRelativeURLFix       RepairKind = "RELATIVE_URL_FIX"
	RepairBlobURLResolve       RepairKind = "BLOB_URL_RESOLVE"
	RepairMediaTypeCorrection  RepairKind = "MEDIA_TYPE_CORRECTION"
	RepairPlaceholderInsertion RepairKind = "PLACEHOLDER_INSERTION"
)

// RepairAction records one attempted fix.
type RepairAction struct {
	Reference Reference  `json:"reference"`
	OldURL    string     `json:"old_url"`
	NewURL    string     `json:"new_url"`
	Kind      RepairKind `json:"kind"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
}

// RepairReport is the immutable record of one repair run.
type RepairReport struct {
	ID             string         `json:"id" bson:"_id"`
	Timestamp      time.Time      `json:"timestamp" bson:"timestamp"`
	TotalAttempted int            `json:"total_attempted" bson:"total_attempted"`
	TotalSuccess   int            `json:"total_success" bson:"total_success"`
	TotalFailed    int            `json:"total_failed" bson:"total_failed"`
	Actions        []RepairAction `json:"actions" bson:"actions"`
}
