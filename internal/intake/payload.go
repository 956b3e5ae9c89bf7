package intake

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
)

// Multipart part names the backend reads.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldTags        = "tags"
	FieldVideoLink   = "youtubeLink"
	FieldFiles       = "files"
)

type field struct{ name, value string }

// Payload is a validated draft ready to encode.
type Payload struct {
	fields      []field
	attachments []Attachment
}

// BuildPayload validates d and packs it. Scalar fields are sent as typed,
// except the category which is resolved first.
func BuildPayload(d Draft) (*Payload, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	p := &Payload{
		fields: []field{
			{FieldTitle, d.Title},
			{FieldDescription, d.Description},
			{FieldCategory, d.EffectiveCategory()},
			{FieldTags, d.Tags},
			{FieldVideoLink, d.VideoLink},
		},
		attachments: append([]Attachment(nil), d.Attachments...),
	}
	return p, nil
}

// Value returns the scalar field name, or "" if absent.
func (p *Payload) Value(name string) string {
	for _, f := range p.fields {
		if f.name == name {
			return f.value
		}
	}
	return ""
}

// AttachmentNames lists attachment file names in upload order.
func (p *Payload) AttachmentNames() []string {
	out := make([]string, 0, len(p.attachments))
	for _, a := range p.attachments {
		out = append(out, a.Name())
	}
	return out
}

// Encode writes the multipart body to w and returns its content type.
func (p *Payload) Encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, f := range p.fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return "", err
		}
	}
	for _, a := range p.attachments {
		if err := writeFile(mw, a); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

// Reader encodes the whole body into memory.
func (p *Payload) Reader() (io.Reader, string, error) {
	var buf bytes.Buffer
	ct, err := p.Encode(&buf)
	if err != nil {
		return nil, "", err
	}
	return &buf, ct, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(mw *multipart.Writer, a Attachment) error {
	f, err := a.open()
	if err != nil {
		return fmt.Errorf("attachment %s: %w", a.Path, err)
	}
	defer f.Close()

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(a.Path)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldFiles, quoteEscaper.Replace(a.Name())))
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("attachment %s: %w", a.Path, err)
	}
	return nil
}
