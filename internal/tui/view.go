package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"techwiki/internal/access"
)

var routeKeys = map[access.Route]string{
	access.RouteHome:          "h",
	access.RouteCreateProblem: "c",
	access.RouteCategories:    "g",
	access.RouteTags:          "t",
	access.RouteUsers:         "u",
}

var routeLabels = map[access.Route]string{
	access.RouteHome:          "Problems",
	access.RouteCreateProblem: "New problem",
	access.RouteCategories:    "Categories",
	access.RouteTags:          "Tags",
	access.RouteUsers:         "Users",
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("TechWiki")
	if m.addr != "" {
		b.WriteString("  " + m.addr)
	}
	if s := m.auth.Session(); s.Authenticated() {
		b.WriteString("  [" + s.Identity.Username + " / " + s.Identity.Role.String() + "]")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateLoading:
		b.WriteString("loading...\n")
	case stateLogin:
		m.viewLogin(&b)
	default:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), m.viewContent()))
		b.WriteString("\n")
	}

	if m.info != "" {
		b.WriteString("\n" + m.info + "\n")
	}
	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}
	return b.String()
}

// viewSidebar lists only the routes the identity may open. Collapsed, it
// shows the shortcut keys alone.
func (m Model) viewSidebar() string {
	sess := m.auth.Session()
	var b strings.Builder
	for _, r := range access.Routes() {
		if !sess.CanAccess(r) {
			continue
		}
		mark := " "
		if r == m.route {
			mark = ">"
		}
		if m.nav.Collapsed {
			b.WriteString(mark + routeKeys[r] + "\n")
			continue
		}
		b.WriteString(mark + " " + routeKeys[r] + "  " + routeLabels[r] + "\n")
	}
	if !m.nav.Collapsed {
		b.WriteString("\n  L  Sign out\n  b  Collapse\n")
	}
	return lipgloss.NewStyle().Width(m.nav.SidebarWidth()).Render(b.String())
}

func (m Model) viewContent() string {
	var b strings.Builder
	switch m.route {
	case access.RouteCreateProblem:
		m.viewCreate(&b)
	case access.RouteProblemDetail:
		m.viewDetail(&b)
	default:
		if m.route == access.RouteHome {
			switch {
			case m.filter.Category != "":
				b.WriteString("category: " + m.filter.Category + "  (x: clear)\n")
			case m.filter.Tag != "":
				b.WriteString("tag: " + m.filter.Tag + "  (x: clear)\n")
			}
		}
		l := m.activeList()
		b.WriteString(l.View())
	}
	return lipgloss.NewStyle().Width(m.nav.ContentWidth()).Render(b.String())
}
