package simpleupload

import (
	"errors"
	"mime"
	"sort"
	"strings"
)

// Messages holds the user-visible strings of one media variant.
type Messages struct {
	MissingFile      string
	UnsupportedType  string
	Uploaded         string
	StoreFailed      string
	SaveFailed       string
	NotFound         string
	FileNotFound     string
	FetchFailed      string
	Updated          string
	UpdateFailed     string
	Deleted          string
	DeleteFileFailed string
	DeleteFailed     string
}

// MediaPolicy parameterizes the generic upload service for one media variant.
type MediaPolicy struct {
	// Name identifies the variant in logs, metrics and events.
	Name string
	// FieldTag is the multipart field name and the storage name prefix.
	FieldTag string
	// Allowed maps accepted media types to their canonical extension.
	Allowed map[string]string
	// RoutePrefix is where records of this variant are addressed, e.g. "/image".
	RoutePrefix string
	// Collection names the table or collection holding the records.
	Collection string
	Messages   Messages
}

// ImagePolicy accepts jpeg, png and gif images.
func ImagePolicy() MediaPolicy {
	return MediaPolicy{
		Name:     "image",
		FieldTag: "image",
		Allowed: map[string]string{
			"image/jpeg": ".jpg",
			"image/png":  ".png",
			"image/gif":  ".gif",
		},
		RoutePrefix: "/image",
		Collection:  "images",
		Messages: Messages{
			MissingFile:      "Please upload an image!",
			UnsupportedType:  "Invalid file type, only images (jpg, png, gif) are allowed!",
			Uploaded:         "Image uploaded and saved successfully!",
			StoreFailed:      "Error storing image file",
			SaveFailed:       "Error saving image metadata",
			NotFound:         "Image not found",
			FileNotFound:     "File not found",
			FetchFailed:      "Error fetching image",
			Updated:          "Image updated successfully!",
			UpdateFailed:     "Error updating image",
			Deleted:          "Image deleted successfully!",
			DeleteFileFailed: "Error deleting file",
			DeleteFailed:     "Error deleting image",
		},
	}
}

// PDFPolicy accepts PDF documents only.
func PDFPolicy() MediaPolicy {
	return MediaPolicy{
		Name:     "pdf",
		FieldTag: "pdf",
		Allowed: map[string]string{
			"application/pdf": ".pdf",
		},
		RoutePrefix: "/pdf",
		Collection:  "pdfs",
		Messages: Messages{
			MissingFile:      "Please upload a PDF file!",
			UnsupportedType:  "Invalid file type, only PDF is allowed!",
			Uploaded:         "PDF uploaded and saved successfully!",
			StoreFailed:      "Error storing PDF file",
			SaveFailed:       "Error saving PDF metadata",
			NotFound:         "PDF not found",
			FileNotFound:     "File not found",
			FetchFailed:      "Error fetching PDF",
			Updated:          "PDF updated successfully!",
			UpdateFailed:     "Error updating PDF",
			Deleted:          "PDF deleted successfully!",
			DeleteFileFailed: "Error deleting file",
			DeleteFailed:     "Error deleting PDF",
		},
	}
}

// NormalizeMediaType lowercases a media type and strips its parameters.
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		return parsed
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Allows reports whether the policy accepts the declared media type.
func (p MediaPolicy) Allows(mediaType string) bool {
	_, ok := p.Allowed[NormalizeMediaType(mediaType)]
	return ok
}

// AllowedTypes returns the accepted media types in sorted order.
func (p MediaPolicy) AllowedTypes() []string {
	types := make([]string, 0, len(p.Allowed))
	for t := range p.Allowed {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MediaTypeForExtension maps a file extension back to an allowed media
// type. Extensions outside the allow-list report false.
func (p MediaPolicy) MediaTypeForExtension(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	if ext == "" {
		return "", false
	}
	allowed := p.AllowedTypes()
	for _, mediaType := range allowed {
		if p.Allowed[mediaType] == ext {
			return mediaType, true
		}
	}
	// Aliases such as .jpeg resolve through the system table.
	if mediaType := NormalizeMediaType(mime.TypeByExtension(ext)); p.Allows(mediaType) {
		return mediaType, true
	}
	return "", false
}

// Validate checks that the policy is usable.
func (p MediaPolicy) Validate() error {
	if p.Name == "" || p.FieldTag == "" {
		return errors.New("invalid media policy: name and field tag are required")
	}
	if strings.ContainsAny(p.FieldTag, `/\`) {
		return errors.New("invalid media policy: field tag must not contain path separators")
	}
	if len(p.Allowed) == 0 {
		return errors.New("invalid media policy: at least one media type must be allowed")
	}
	if p.Collection == "" {
		return errors.New("invalid media policy: collection is required")
	}
	return nil
}
