// Package intake turns what an author typed into the article the backend
// accepts: video previews, category resolution, required-field checks and
// the multipart submission body.
//
// Nothing here keeps state between submissions.
package intake

import (
	"regexp"
	"unicode/utf8"
)

// VideoIDLength is the fixed length of a video identifier.
const VideoIDLength = 11

var (
	// Watch, short, embed and path-style links, for the single link field.
	singleVideoRe = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	// Watch and short links only, for free text.
	textVideoRe = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([^"&?/\s]{11})(?:[^\s]*)`)
)

// ExtractSingleVideoRef returns the video id found in a link field.
func ExtractSingleVideoRef(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	m := singleVideoRe.FindStringSubmatch(raw)
	if len(m) < 2 || utf8.RuneCountInString(m[1]) != VideoIDLength {
		return "", false
	}
	return m[1], true
}

// ExtractAllVideoRefs returns every video id linked from text in order of
// appearance. A video linked twice yields two entries. The result is never
// nil.
func ExtractAllVideoRefs(text string) []string {
	out := []string{}
	if text == "" {
		return out
	}
	for _, m := range textVideoRe.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 && m[1] != "" {
			out = append(out, m[1])
		}
	}
	return out
}

// EmbedURL is the player URL for a video id.
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}
