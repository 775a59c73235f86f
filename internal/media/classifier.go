// internal/media/classifier.go

package media

import (
	"fmt"
	"strings"

	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// ClassifierRules holds the heuristic tables the classifier matches
// against. The tables are configuration data so new extensions or
// vendor naming fragments can be added without a redeploy.
type ClassifierRules struct {
	ImageExtensions    []string `yaml:"image_extensions" json:"image_extensions"`
	VideoExtensions    []string `yaml:"video_extensions" json:"video_extensions"`
	AudioExtensions    []string `yaml:"audio_extensions" json:"audio_extensions"`
	DocumentExtensions []string `yaml:"document_extensions" json:"document_extensions"`

	// VideoIndicators are substrings whose presence marks a URL as
	// video even without a recognized extension: stock-footage vendor
	// naming fragments and MIME fragments embedded in URLs.
	VideoIndicators []string `yaml:"video_indicators" json:"video_indicators"`
}

// DefaultClassifierRules returns the tables observed in production data.
func DefaultClassifierRules() ClassifierRules {
	return ClassifierRules{
		ImageExtensions:    []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "svg", "avif", "heic"},
		VideoExtensions:    []string{"mp4", "mov", "webm", "avi", "mkv", "m4v", "mpg", "mpeg", "3gp"},
		AudioExtensions:    []string{"mp3", "wav", "ogg", "m4a", "aac", "flac"},
		DocumentExtensions: []string{"pdf", "doc", "docx", "xls", "xlsx", "txt"},
		VideoIndicators: []string{
			"video/", "-video-", "_video_", "videoblocks", "storyblocks",
			"sbv-", "gettyimages-video", "shutterstock_v", "zoom_0",
		},
	}
}

// ClassifyOptions tune a classification pass.
type ClassifyOptions struct {
	// BaseURL, when set, lets relative references be rewritten to
	// absolute and re-classified instead of being rejected.
	BaseURL string
}

// Classification is the pure, I/O-free verdict on a URL. NeedsProbe
// marks URLs whose final validity still depends on a reachability check.
type Classification struct {
	Type        Type
	Valid       bool
	Flagged     bool
	Reason      string
	ResolvedURL string
	NeedsProbe  bool
}

// Classifier assigns media types and static validity to URLs.
type Classifier struct {
	registry *Registry
	rules    ClassifierRules
}

// NewClassifier builds a classifier over a placeholder registry and
// heuristic rule tables.
func NewClassifier(registry *Registry, rules ClassifierRules) *Classifier {
	return &Classifier{registry: registry, rules: rules}
}

// Classify applies the precedence rules, first match wins:
// placeholder, blob scheme, data scheme, relative URL, extension table,
// video indicator token, default image. A declared image type with a
// detected video is tolerated as valid (flagged) for known historical
// data; the inverse stays invalid.
func (c *Classifier) Classify(rawURL string, declared Type, opts ClassifyOptions) Classification {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return Classification{Type: TypeUnknown, Reason: "empty URL"}
	}

	if kind, ok := c.registry.TypeOf(url); ok {
		return Classification{Type: kind, Valid: true, ResolvedURL: c.registry.Canonicalize(url)}
	}

	switch utils.URLScheme(url) {
	case "blob":
		return Classification{
			Type:   c.blobType(declared, url),
			Reason: "blob URL is an ephemeral session reference, unusable from the server",
		}
	case "data":
		return Classification{Type: dataURLType(url), Valid: true, ResolvedURL: url}
	}

	if utils.IsRelativeURL(url) {
		if opts.BaseURL == "" {
			return Classification{Type: typeOrImage(declared), Reason: "relative URL"}
		}
		resolved, err := utils.ResolveRelativeURL(opts.BaseURL, url)
		if err != nil {
			return Classification{
				Type:   typeOrImage(declared),
				Reason: fmt.Sprintf("relative URL could not be resolved against %s: %v", opts.BaseURL, err),
			}
		}
		result := c.Classify(resolved, declared, ClassifyOptions{})
		result.ResolvedURL = resolved
		return result
	}

	detected := c.detectType(url)
	result := Classification{
		Type:        detected,
		Valid:       true,
		ResolvedURL: url,
		NeedsProbe:  utils.IsAbsoluteHTTP(url),
	}

	return applyLegacyException(result, declared, detected)
}

// detectType runs the extension and indicator heuristics only, with the
// default-image fallback.
func (c *Classifier) detectType(url string) Type {
	if ext := utils.URLExtension(url); ext != "" {
		switch {
		case containsFold(c.rules.ImageExtensions, ext):
			return TypeImage
		case containsFold(c.rules.VideoExtensions, ext):
			return TypeVideo
		case containsFold(c.rules.AudioExtensions, ext):
			return TypeAudio
		case containsFold(c.rules.DocumentExtensions, ext):
			return TypeDocument
		}
	}

	lower := strings.ToLower(url)
	for _, indicator := range c.rules.VideoIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			return TypeVideo
		}
	}

	return TypeImage
}

// applyLegacyException encodes the intentional asymmetry: video detected
// where image was declared is valid but flagged; image detected where
// video was declared is invalid.
func applyLegacyException(result Classification, declared, detected Type) Classification {
	switch {
	case declared == TypeImage && detected == TypeVideo:
		result.Flagged = true
	case declared == TypeVideo && detected == TypeImage:
		result.Valid = false
		result.NeedsProbe = false
		result.Reason = "expected video but detected image"
	}
	return result
}

// blobType guesses the media type of a blob reference from its declared
// type or URL so repair can pick the right placeholder.
func (c *Classifier) blobType(declared Type, url string) Type {
	if declared != "" && declared != TypeUnknown {
		return declared
	}
	lower := strings.ToLower(url)
	for _, indicator := range c.rules.VideoIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			return TypeVideo
		}
	}
	return TypeImage
}

// dataURLType reads the MIME prefix of a data: URL.
func dataURLType(url string) Type {
	meta := strings.TrimPrefix(url, "data:")
	if i := strings.IndexAny(meta, ";,"); i >= 0 {
		meta = meta[:i]
	}
	return TypeFromContentType(meta)
}

// TypeFromContentType maps a MIME type to a media type category.
func TypeFromContentType(contentType string) Type {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return TypeImage
	case strings.HasPrefix(mime, "video/"):
		return TypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return TypeAudio
	case mime == "application/pdf", strings.HasPrefix(mime, "text/"),
		strings.HasPrefix(mime, "application/msword"),
		strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument"):
		return TypeDocument
	default:
		return TypeUnknown
	}
}

func typeOrImage(declared Type) Type {
	if declared != "" && declared != TypeUnknown {
		return declared
	}
	return TypeImage
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
