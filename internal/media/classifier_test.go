// internal/media/classifier_test.go
package media

import (
	"strings"
	"testing"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(newTestRegistry(t), DefaultClassifierRules())
}

func TestClassifyPrecedence(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name         string
		url          string
		declared     Type
		wantType     Type
		wantValid    bool
		wantFlagged  bool
		wantProbe    bool
		reasonPhrase string
	}{
		{
			name:      "placeholder is always valid",
			url:       testImagePlaceholder,
			declared:  TypeImage,
			wantType:  TypeImage,
			wantValid: true,
		},
		{
			name:      "placeholder wins even in a video field",
			url:       testImagePlaceholder,
			declared:  TypeVideo,
			wantType:  TypeImage,
			wantValid: true,
		},
		{
			name:         "blob URL is invalid",
			url:          "blob:https://app.example.com/f4a2",
			declared:     TypeImage,
			wantType:     TypeImage,
			wantValid:    false,
			reasonPhrase: "blob",
		},
		{
			name:      "data URL is valid without probing",
			url:       "data:image/png;base64,iVBORw0KGgo=",
			declared:  TypeImage,
			wantType:  TypeImage,
			wantValid: true,
		},
		{
			name:         "relative URL without base is invalid",
			url:          "/images/yacht.jpg",
			declared:     TypeImage,
			wantType:     TypeImage,
			wantValid:    false,
			reasonPhrase: "relative URL",
		},
		{
			name:      "image extension",
			url:       "https://cdn.example.com/yacht.webp",
			declared:  TypeImage,
			wantType:  TypeImage,
			wantValid: true,
			wantProbe: true,
		},
		{
			name:      "audio extension",
			url:       "https://cdn.example.com/tour.mp3",
			declared:  TypeAudio,
			wantType:  TypeAudio,
			wantValid: true,
			wantProbe: true,
		},
		{
			name:      "document extension",
			url:       "https://cdn.example.com/contract.pdf",
			declared:  TypeDocument,
			wantType:  TypeDocument,
			wantValid: true,
			wantProbe: true,
		},
		{
			name:        "video in declared image field is valid but flagged",
			url:         "https://cdn.example.com/tour.mp4",
			declared:    TypeImage,
			wantType:    TypeVideo,
			wantValid:   true,
			wantFlagged: true,
			wantProbe:   true,
		},
		{
			name:         "image in declared video field is invalid",
			url:          "https://cdn.example.com/frame.jpg",
			declared:     TypeVideo,
			wantType:     TypeImage,
			wantValid:    false,
			reasonPhrase: "expected video but detected image",
		},
		{
			name:      "video indicator without extension",
			url:       "https://cdn.example.com/videoblocks-sunset-charter",
			declared:  TypeVideo,
			wantType:  TypeVideo,
			wantValid: true,
			wantProbe: true,
		},
		{
			name:      "stock vendor fragment",
			url:       "https://cdn.example.com/sbv-347883-preview",
			declared:  TypeImage,
			wantType:  TypeVideo,
			wantValid: true,
			// By the legacy rule a detected video in an image field is
			// tolerated.
			wantFlagged: true,
			wantProbe:   true,
		},
		{
			name:      "no extension defaults to image",
			url:       "https://cdn.example.com/asset/8842",
			declared:  TypeImage,
			wantType:  TypeImage,
			wantValid: true,
			wantProbe: true,
		},
		{
			name:         "empty URL",
			url:          "   ",
			declared:     TypeImage,
			wantType:     TypeUnknown,
			wantValid:    false,
			reasonPhrase: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.url, tt.declared, ClassifyOptions{})
			if got.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.Flagged != tt.wantFlagged {
				t.Errorf("Flagged = %v, want %v", got.Flagged, tt.wantFlagged)
			}
			if got.NeedsProbe != tt.wantProbe {
				t.Errorf("NeedsProbe = %v, want %v", got.NeedsProbe, tt.wantProbe)
			}
			if tt.reasonPhrase != "" && !strings.Contains(got.Reason, tt.reasonPhrase) {
				t.Errorf("Reason = %q, want it to mention %q", got.Reason, tt.reasonPhrase)
			}
		})
	}
}

func TestClassifyResolvesRelativeAgainstBase(t *testing.T) {
	c := newTestClassifier(t)

	got := c.Classify("/images/yacht.jpg", TypeImage, ClassifyOptions{BaseURL: "https://cdn.example.com"})
	if !got.Valid {
		t.Fatalf("expected valid classification, got reason %q", got.Reason)
	}
	if got.ResolvedURL != "https://cdn.example.com/images/yacht.jpg" {
		t.Errorf("ResolvedURL = %q", got.ResolvedURL)
	}
	if !got.NeedsProbe {
		t.Error("resolved absolute URL should still be probed")
	}
}

func TestDataURLType(t *testing.T) {
	tests := []struct {
		url  string
		want Type
	}{
		{"data:image/png;base64,AAAA", TypeImage},
		{"data:video/mp4;base64,AAAA", TypeVideo},
		{"data:audio/mpeg;base64,AAAA", TypeAudio},
		{"data:application/pdf;base64,AAAA", TypeDocument},
		{"data:application/octet-stream;base64,AAAA", TypeUnknown},
	}
	for _, tt := range tests {
		if got := dataURLType(tt.url); got != tt.want {
			t.Errorf("dataURLType(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestTypeFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        Type
	}{
		{"image/jpeg", TypeImage},
		{"video/mp4; codecs=avc1", TypeVideo},
		{"audio/mpeg", TypeAudio},
		{"application/pdf", TypeDocument},
		{"text/html; charset=utf-8", TypeDocument},
		{"application/octet-stream", TypeUnknown},
		{"", TypeUnknown},
	}
	for _, tt := range tests {
		if got := TypeFromContentType(tt.contentType); got != tt.want {
			t.Errorf("TypeFromContentType(%q) = %s, want %s", tt.contentType, got, tt.want)
		}
	}
}
