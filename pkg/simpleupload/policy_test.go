package simpleupload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMediaType(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":                  "image/jpeg",
		"IMAGE/PNG":                   "image/png",
		" image/gif ":                 "image/gif",
		"application/pdf; name=x.pdf": "application/pdf",
		"":                            "",
		"not a media type;":           "not a media type",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeMediaType(in), in)
	}
}

func TestMediaPolicy_Allows(t *testing.T) {
	image := ImagePolicy()
	assert.True(t, image.Allows("image/jpeg"))
	assert.True(t, image.Allows("image/PNG"))
	assert.True(t, image.Allows("image/gif"))
	assert.False(t, image.Allows("image/webp"))
	assert.False(t, image.Allows("application/pdf"))

	pdf := PDFPolicy()
	assert.True(t, pdf.Allows("application/pdf"))
	assert.False(t, pdf.Allows("image/jpeg"))

	assert.Equal(t, []string{"image/gif", "image/jpeg", "image/png"}, image.AllowedTypes())
}

func TestMediaPolicy_Validate(t *testing.T) {
	assert.NoError(t, ImagePolicy().Validate())
	assert.NoError(t, PDFPolicy().Validate())

	p := ImagePolicy()
	p.FieldTag = "a/b"
	assert.Error(t, p.Validate())

	p = ImagePolicy()
	p.Allowed = nil
	assert.Error(t, p.Validate())

	p = PDFPolicy()
	p.Collection = ""
	assert.Error(t, p.Validate())

	assert.Error(t, MediaPolicy{}.Validate())
}

func TestMediaPolicy_MediaTypeForExtension(t *testing.T) {
	image := ImagePolicy()
	tests := []struct {
		ext    string
		want   string
		wantOK bool
	}{
		{".jpg", "image/jpeg", true},
		{".JPG", "image/jpeg", true},
		{".jpeg", "image/jpeg", true},
		{".png", "image/png", true},
		{".gif", "image/gif", true},
		{".html", "", false},
		{".svg", "", false},
		{".pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := image.MediaTypeForExtension(tt.ext)
		assert.Equal(t, tt.wantOK, ok, tt.ext)
		assert.Equal(t, tt.want, got, tt.ext)
	}

	got, ok := PDFPolicy().MediaTypeForExtension(".pdf")
	assert.True(t, ok)
	assert.Equal(t, "application/pdf", got)
}
