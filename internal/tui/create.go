package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"techwiki/internal/access"
	"techwiki/internal/intake"
	"techwiki/internal/kbapi"
)

func (m *Model) resetForm() tea.Cmd {
	for _, ti := range m.inputs() {
		ti.SetValue("")
	}
	m.desc.SetValue("")
	m.catOptions = intake.CategoryOptions(nil)
	m.catIdx = 0
	return m.setFocus(fieldTitle)
}

func (m *Model) inputs() []*textinput.Model {
	return []*textinput.Model{&m.title, &m.newCat, &m.tagsIn, &m.video, &m.files}
}

func (m *Model) setFocus(f int) tea.Cmd {
	for _, ti := range m.inputs() {
		ti.Blur()
	}
	m.desc.Blur()
	m.focus = f
	switch f {
	case fieldTitle:
		return m.title.Focus()
	case fieldNewCategory:
		return m.newCat.Focus()
	case fieldTags:
		return m.tagsIn.Focus()
	case fieldVideo:
		return m.video.Focus()
	case fieldDescription:
		return m.desc.Focus()
	case fieldFiles:
		return m.files.Focus()
	}
	return nil
}

// setCategoryOptions replaces the selector entries, keeping the current
// choice when it is still offered.
func (m *Model) setCategoryOptions(known []string) {
	cur := m.selectedCategory()
	m.catOptions = intake.CategoryOptions(known)
	m.catIdx = 0
	for i, c := range m.catOptions {
		if c == cur {
			m.catIdx = i
			break
		}
	}
}

func (m Model) selectedCategory() string {
	if m.catIdx < 0 || m.catIdx >= len(m.catOptions) {
		return ""
	}
	return m.catOptions[m.catIdx]
}

func (m Model) newCategorySelected() bool { return m.selectedCategory() == intake.NewCategory }

// nextField moves focus by step, skipping the free-text category unless
// the selector is on the new-category entry.
func (m Model) nextField(step int) int {
	f := m.focus
	for {
		f = (f + step + fieldCount) % fieldCount
		if f != fieldNewCategory || m.newCategorySelected() {
			return f
		}
	}
}

// attachmentPaths splits the attachment field. Names with an extension the
// picker would not offer are returned separately.
func (m Model) attachmentPaths() (accepted, skipped []string) {
	for _, p := range strings.Split(m.files.Value(), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if intake.Accepted(p) {
			accepted = append(accepted, p)
		} else {
			skipped = append(skipped, p)
		}
	}
	return accepted, skipped
}

// draft reads the form. It is rebuilt on every submit, so a failed
// submission leaves every field as the author typed it.
func (m Model) draft() intake.Draft {
	d := intake.Draft{
		Title:       m.title.Value(),
		Description: m.desc.Value(),
		Category:    m.selectedCategory(),
		NewCategory: m.newCat.Value(),
		Tags:        m.tagsIn.Value(),
		VideoLink:   m.video.Value(),
	}
	paths, _ := m.attachmentPaths()
	for _, p := range paths {
		d.Attachments = append(d.Attachments, intake.OSAttachment(p))
	}
	return d
}

func (m Model) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m.enterMain(access.RouteHome)
		case "ctrl+b":
			m.nav.Toggle()
			m.resizeWidgets()
			return m, nil
		case "tab":
			return m, m.setFocus(m.nextField(1))
		case "shift+tab":
			return m, m.setFocus(m.nextField(-1))
		case "ctrl+s":
			if m.inFlight {
				return m, nil
			}
			d := m.draft()
			if err := intake.Validate(d); err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.inFlight = true
			m.err, m.info = "", ""
			return m, submitCmd(m.ctx, m.be, m.gen, d)
		}
		if m.focus == fieldCategory {
			switch k.String() {
			case "left", "up":
				if m.catIdx > 0 {
					m.catIdx--
				}
			case "right", "down", " ":
				if m.catIdx < len(m.catOptions)-1 {
					m.catIdx++
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldNewCategory:
		m.newCat, cmd = m.newCat.Update(msg)
	case fieldTags:
		m.tagsIn, cmd = m.tagsIn.Update(msg)
	case fieldVideo:
		m.video, cmd = m.video.Update(msg)
	case fieldDescription:
		m.desc, cmd = m.desc.Update(msg)
	case fieldFiles:
		m.files, cmd = m.files.Update(msg)
	}
	return m, cmd
}

func (m Model) handleCreated(msg createdMsg) (tea.Model, tea.Cmd) {
	m.inFlight = false
	if msg.err != nil {
		m.err = msg.err.Error()
		m.log.Warn("problem not created", "err", msg.err)
		return m, nil
	}
	m.log.Info("problem created", "id", msg.problem.ID)
	m.filter = kbapi.ProblemFilter{}
	next, cmd := m.enterMain(access.RouteHome)
	nm := next.(Model)
	nm.info = fmt.Sprintf("problem #%d created", msg.problem.ID)
	return nm, cmd
}

func (m Model) viewCreate(b *strings.Builder) {
	b.WriteString("New problem\n\n")
	b.WriteString(m.title.View() + "\n")

	cursor := "  "
	if m.focus == fieldCategory {
		cursor = "> "
	}
	fmt.Fprintf(b, "%sCategory: < %s >  (%d/%d)\n", cursor, m.selectedCategory(), m.catIdx+1, len(m.catOptions))
	if m.newCategorySelected() {
		b.WriteString(m.newCat.View() + "\n")
	}
	b.WriteString(m.tagsIn.View() + "\n")
	b.WriteString(m.video.View() + "\n")
	b.WriteString("Description:\n" + m.desc.View() + "\n")
	b.WriteString(m.files.View() + "\n")

	if _, skipped := m.attachmentPaths(); len(skipped) > 0 {
		fmt.Fprintf(b, "not attached (allowed: %s): %s\n", strings.Join(intake.AcceptExtensions, " "), strings.Join(skipped, ", "))
	}

	d := m.draft()
	if n := len(intake.ExtractAllVideoRefs(d.Description)); n > 0 {
		fmt.Fprintf(b, "%d video(s) detected in the description\n", n)
	}
	for _, id := range d.VideoPreviews() {
		b.WriteString("  preview: " + intake.EmbedURL(id) + "\n")
	}
	if m.inFlight {
		b.WriteString("submitting...\n")
	}
	b.WriteString("\ntab: next field  left/right: category  ctrl+s: submit  esc: cancel\n")
}
