package intake

import "strings"

// NewCategory is the selector entry meaning "type a new category".
const NewCategory = "Outra"

// ResolveCategoryValue returns the category to submit. Uniqueness of a new
// category is the backend's concern.
func ResolveCategoryValue(selected, freeText string) string {
	if selected == NewCategory {
		return strings.TrimSpace(freeText)
	}
	return selected
}

// CategoryOptions is the selector list: known categories followed by the
// new-category entry. A known category equal to the sentinel is dropped.
func CategoryOptions(known []string) []string {
	out := make([]string, 0, len(known)+1)
	for _, c := range known {
		if c == "" || c == NewCategory {
			continue
		}
		out = append(out, c)
	}
	return append(out, NewCategory)
}

// SplitTags splits a comma separated tag string, trimming each tag and
// dropping empties. Submission still sends the raw string.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
