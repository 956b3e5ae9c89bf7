package tui

import (
	"fmt"
	"strings"

	"techwiki/internal/intake"
)

// viewDetail renders one article read-only. Videos come from the link field
// first, then from every link in the body, in order.
func (m Model) viewDetail(b *strings.Builder) {
	p := m.detail
	if p == nil {
		fmt.Fprintf(b, "loading problem #%d...\n", m.detailID)
		return
	}
	fmt.Fprintf(b, "#%d %s\n", p.ID, p.Title)
	fmt.Fprintf(b, "category: %s", p.Category)
	if len(p.Tags) > 0 {
		b.WriteString("  tags: " + strings.Join(p.Tags, ", "))
	}
	b.WriteString("\n")
	if p.Author != "" {
		fmt.Fprintf(b, "by %s  %s\n", p.Author, p.CreatedAt)
	}
	b.WriteString("\n" + p.Description + "\n")

	var videos []string
	if id, ok := intake.ExtractSingleVideoRef(p.YoutubeLink); ok {
		videos = append(videos, id)
	}
	videos = append(videos, intake.ExtractAllVideoRefs(p.Description)...)
	if len(videos) > 0 {
		b.WriteString("\nVideos:\n")
		for _, id := range videos {
			b.WriteString("  " + intake.EmbedURL(id) + "\n")
		}
	}
	if len(p.Files) > 0 {
		b.WriteString("\nFiles:\n")
		for _, f := range p.Files {
			b.WriteString("  " + f + "\n")
		}
	}
	b.WriteString("\nesc: back  r: reload\n")
}
