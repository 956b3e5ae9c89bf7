package intake

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AcceptExtensions is what the file picker offers. The backend enforces
// the real limits.
var AcceptExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".pdf"}

// Accepted reports whether name carries one of AcceptExtensions.
func Accepted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range AcceptExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Attachment is a file to upload, read through Fs at submission time.
type Attachment struct {
	Fs   afero.Fs
	Path string
}

// OSAttachment is an attachment on the local filesystem.
func OSAttachment(path string) Attachment {
	return Attachment{Fs: afero.NewOsFs(), Path: path}
}

func (a Attachment) Name() string { return filepath.Base(a.Path) }

func (a Attachment) open() (afero.File, error) {
	fs := a.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return fs.OpenFile(a.Path, os.O_RDONLY, 0)
}

// Draft is an article being written. Category holds the selector value and
// NewCategory the free text used when the selector is on the sentinel.
type Draft struct {
	Title       string
	Description string
	Category    string
	NewCategory string
	Tags        string
	VideoLink   string
	Attachments []Attachment
}

// EffectiveCategory is the category that will be submitted.
func (d Draft) EffectiveCategory() string {
	return ResolveCategoryValue(d.Category, d.NewCategory)
}

// VideoPreviews lists the ids to preview: the link field first, then every
// link found in the description.
func (d Draft) VideoPreviews() []string {
	out := []string{}
	if id, ok := ExtractSingleVideoRef(d.VideoLink); ok {
		out = append(out, id)
	}
	return append(out, ExtractAllVideoRefs(d.Description)...)
}
