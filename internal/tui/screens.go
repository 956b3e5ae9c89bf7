package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"techwiki/internal/access"
	"techwiki/internal/kbapi"
)

type problemItem struct{ p kbapi.Problem }

func (i problemItem) Title() string { return fmt.Sprintf("#%d %s", i.p.ID, i.p.Title) }
func (i problemItem) Description() string {
	d := i.p.Category
	if len(i.p.Tags) > 0 {
		d += "  [" + strings.Join(i.p.Tags, ", ") + "]"
	}
	if i.p.Author != "" {
		d += "  by " + i.p.Author
	}
	return d
}
func (i problemItem) FilterValue() string { return i.p.Title }

type userItem struct{ u kbapi.User }

func (i userItem) Title() string       { return i.u.Username }
func (i userItem) Description() string { return fmt.Sprintf("%s  id=%d", i.u.Role, i.u.ID) }
func (i userItem) FilterValue() string { return i.u.Username }

type nameItem string

func (i nameItem) Title() string       { return string(i) }
func (i nameItem) Description() string { return "" }
func (i nameItem) FilterValue() string { return string(i) }

// enterMain opens route for the current identity. A route the role may not
// open lands on home; an anonymous session lands on the login screen.
func (m Model) enterMain(route access.Route) (tea.Model, tea.Cmd) {
	sess := m.auth.Session()
	if !sess.Authenticated() {
		return m.enterLogin()
	}
	target := access.Resolve(route, sess.Identity.Role)
	if target != route {
		m.log.Debug("route denied", "route", route.String(), "role", sess.Identity.Role.String())
	}

	m.teardown()
	m.st = stateMain
	m.route = target

	switch target {
	case access.RouteProblemDetail:
		return m, problemCmd(m.ctx, m.be, m.gen, m.detailID)
	case access.RouteUsers:
		return m, usersCmd(m.ctx, m.be, m.gen)
	case access.RouteCategories:
		return m, categoriesCmd(m.ctx, m.be, m.gen)
	case access.RouteTags:
		return m, tagsCmd(m.ctx, m.be, m.gen)
	case access.RouteCreateProblem:
		cmd := m.resetForm()
		return m, tea.Batch(cmd, categoriesCmd(m.ctx, m.be, m.gen))
	default:
		return m, problemsCmd(m.ctx, m.be, m.gen, m.filter)
	}
}

func (m *Model) activeList() *list.Model {
	switch m.route {
	case access.RouteUsers:
		return &m.users
	case access.RouteCategories:
		return &m.categories
	case access.RouteTags:
		return &m.tags
	default:
		return &m.problems
	}
}

func (m Model) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case problemsMsg:
		items := make([]list.Item, 0, len(msg.problems))
		for _, p := range msg.problems {
			items = append(items, problemItem{p})
		}
		return m, m.problems.SetItems(items)

	case usersMsg:
		items := make([]list.Item, 0, len(msg.users))
		for _, u := range msg.users {
			items = append(items, userItem{u})
		}
		return m, m.users.SetItems(items)

	case categoriesMsg:
		if m.route == access.RouteCreateProblem {
			m.setCategoryOptions(msg.categories)
			return m, nil
		}
		return m, m.categories.SetItems(nameItems(msg.categories))

	case tagsMsg:
		return m, m.tags.SetItems(nameItems(msg.tags))

	case problemMsg:
		p := msg.problem
		m.detail = &p
		return m, nil

	case createdMsg:
		return m.handleCreated(msg)

	}

	if m.route == access.RouteCreateProblem {
		return m.updateCreate(msg)
	}

	l := m.activeList()
	if k, ok := msg.(tea.KeyMsg); ok && l.FilterState() != list.Filtering {
		switch k.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "b":
			m.nav.Toggle()
			m.resizeWidgets()
			return m, nil
		case "h":
			return m.enterMain(access.RouteHome)
		case "c":
			return m.enterMain(access.RouteCreateProblem)
		case "g":
			return m.enterMain(access.RouteCategories)
		case "t":
			return m.enterMain(access.RouteTags)
		case "u":
			return m.enterMain(access.RouteUsers)
		case "r":
			return m.enterMain(m.route)
		case "L":
			m.teardown()
			return m, logoutCmd(m.ctx, m.auth)
		case "x":
			if m.route == access.RouteHome && (m.filter != kbapi.ProblemFilter{}) {
				m.filter = kbapi.ProblemFilter{}
				return m.enterMain(access.RouteHome)
			}
		case "esc":
			if m.route == access.RouteProblemDetail {
				return m.enterMain(access.RouteHome)
			}
		case "enter":
			if it, ok := l.SelectedItem().(problemItem); ok && m.route == access.RouteHome {
				m.detailID = it.p.ID
				return m.enterMain(access.RouteProblemDetail)
			}
			if it, ok := l.SelectedItem().(nameItem); ok {
				switch m.route {
				case access.RouteCategories:
					m.filter = kbapi.ProblemFilter{Category: string(it)}
					return m.enterMain(access.RouteHome)
				case access.RouteTags:
					m.filter = kbapi.ProblemFilter{Tag: string(it)}
					return m.enterMain(access.RouteHome)
				}
			}
		}
	}

	if m.route == access.RouteProblemDetail {
		return m, nil
	}
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func nameItems(names []string) []list.Item {
	items := make([]list.Item, 0, len(names))
	for _, n := range names {
		items = append(items, nameItem(n))
	}
	return items
}
