// Package tui is the interactive knowledge-base client built on Bubble Tea.
//
// Screens are gated by the session.Authority: nothing but the login screen
// renders until the identity probe settles, and every navigation goes
// through access.Resolve.
//
// Each asynchronous result carries the generation of the screen that asked
// for it. Leaving a screen bumps the generation, so a late result lands on a
// screen that no longer exists and is dropped.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"techwiki/internal/access"
	"techwiki/internal/intake"
	"techwiki/internal/kbapi"
	"techwiki/internal/layout"
	"techwiki/internal/logging"
	"techwiki/internal/session"
)

// Backend is everything the shell asks of the server.
type Backend interface {
	session.API
	intake.ProblemCreator
	ListProblems(ctx context.Context, f kbapi.ProblemFilter) ([]kbapi.Problem, error)
	GetProblem(ctx context.Context, id int64) (kbapi.Problem, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListTags(ctx context.Context) ([]string, error)
}

type state int

const (
	stateLoading state = iota
	stateLogin
	stateMain
)

// form field focus order on the create screen
const (
	fieldTitle = iota
	fieldCategory
	fieldNewCategory
	fieldTags
	fieldVideo
	fieldDescription
	fieldFiles
	fieldCount
)

type Options struct {
	Backend   Backend
	Authority *session.Authority
	Logger    *slog.Logger
	// Addr is shown in the header.
	Addr string
	// Width is the terminal width at start, 0 if unknown.
	Width      int
	Breakpoint int
	// Context bounds every request the shell issues.
	Context context.Context
}

type Model struct {
	ctx  context.Context
	be   Backend
	auth *session.Authority
	log  *slog.Logger
	addr string

	st    state
	route access.Route
	gen   uint64
	nav   layout.Nav
	h     int

	err  string
	info string

	// login
	mode     session.Mode
	user     textinput.Model
	pass     textinput.Model
	settled  bool
	inFlight bool

	// read-only screens
	problems   list.Model
	users      list.Model
	categories list.Model
	tags       list.Model
	filter     kbapi.ProblemFilter

	// detail
	detailID int64
	detail   *kbapi.Problem

	// create
	title      textinput.Model
	newCat     textinput.Model
	tagsIn     textinput.Model
	video      textinput.Model
	files      textinput.Model
	desc       textarea.Model
	catOptions []string
	catIdx     int
	focus      int
}

func New(opt Options) Model {
	log := opt.Logger
	if log == nil {
		log = logging.Discard()
	}
	ctx := opt.Context
	if ctx == nil {
		ctx = context.Background()
	}
	auth := opt.Authority
	if auth == nil {
		auth = session.New(opt.Backend, log)
	}

	m := Model{
		ctx:        ctx,
		be:         opt.Backend,
		auth:       auth,
		log:        log,
		addr:       opt.Addr,
		nav:        layout.NewNav(opt.Width, opt.Breakpoint),
		catOptions: intake.CategoryOptions(nil),
	}

	m.user = newInput("Username: ", "username")
	m.pass = newInput("Password: ", "password")
	m.pass.EchoMode = textinput.EchoPassword

	m.problems = newList("Problems")
	m.users = newList("Users")
	m.categories = newList("Categories")
	m.tags = newList("Tags")

	m.title = newInput("Title: ", "short summary")
	m.newCat = newInput("New category: ", "name")
	m.tagsIn = newInput("Tags: ", "comma, separated")
	m.video = newInput("Video link: ", "optional")
	m.files = newInput("Attachments: ", "paths, comma separated")
	m.desc = textarea.New()
	m.desc.Placeholder = "Describe the problem and the fix"
	m.desc.ShowLineNumbers = false
	m.desc.SetHeight(6)

	m.h = 24
	m.resizeWidgets()
	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	return ti
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	return l
}

// Init starts the identity probe.
func (m Model) Init() tea.Cmd {
	return resolveSessionCmd(m.ctx, m.auth, m.gen)
}

// Session exposes the current snapshot, mostly for tests.
func (m Model) Session() session.Session { return m.auth.Session() }

// Route is the active screen while signed in.
func (m Model) Route() access.Route { return m.route }

// Nav is the sidebar state.
func (m Model) Nav() layout.Nav { return m.nav }

// teardown leaves the current screen. Results issued before it are stale.
func (m *Model) teardown() {
	m.gen++
	m.err = ""
	m.inFlight = false
	m.detail = nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if g, ok := msg.(generational); ok && g.generation() != m.gen {
		m.log.Debug("stale result dropped", "type", typeName(msg), "gen", g.generation(), "current", m.gen)
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.nav.Resize(msg.Width)
		m.h = msg.Height
		m.resizeWidgets()
		return m, nil
	case sessionMsg:
		if msg.sess.Authenticated() {
			return m.enterMain(access.RouteHome)
		}
		return m.enterLogin()
	case loggedOutMsg:
		next, cmd := m.enterLogin()
		nm := next.(Model)
		nm.info = "signed out"
		return nm, cmd
	case errMsg:
		m.err = msg.err.Error()
		m.inFlight = false
		return m, nil
	}

	switch m.st {
	case stateLoading:
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case stateLogin:
		return m.updateLogin(msg)
	default:
		return m.updateMain(msg)
	}
}

func (m *Model) resizeWidgets() {
	w := m.nav.ContentWidth()
	h := m.h - 6
	if h < 5 {
		h = 5
	}
	for _, l := range []*list.Model{&m.problems, &m.users, &m.categories, &m.tags} {
		l.SetSize(w, h)
	}
	m.desc.SetWidth(w)
}
