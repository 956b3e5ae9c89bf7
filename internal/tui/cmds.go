package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"techwiki/internal/intake"
	"techwiki/internal/kbapi"
	"techwiki/internal/session"
)

// generational is implemented by every result that belongs to one screen.
type generational interface{ generation() uint64 }

type stamp uint64

func (s stamp) generation() uint64 { return uint64(s) }

type errMsg struct {
	stamp
	err error
}

type sessionMsg struct {
	stamp
	sess session.Session
}

type setupMsg struct {
	stamp
	state session.SetupState
	err   error
}

type credsMsg struct {
	stamp
	mode session.Mode
	out  session.Outcome
	err  error
}

// loggedOutMsg carries no generation: once the identity is cleared the
// shell must leave whatever screen is showing.
type loggedOutMsg struct{}

type problemsMsg struct {
	stamp
	problems []kbapi.Problem
}

type problemMsg struct {
	stamp
	problem kbapi.Problem
}

type usersMsg struct {
	stamp
	users []kbapi.User
}

type categoriesMsg struct {
	stamp
	categories []string
}

type tagsMsg struct {
	stamp
	tags []string
}

type createdMsg struct {
	stamp
	problem kbapi.Problem
	err     error
}

func typeName(msg tea.Msg) string { return strings.TrimPrefix(fmt.Sprintf("%T", msg), "tui.") }

func resolveSessionCmd(ctx context.Context, a *session.Authority, gen uint64) tea.Cmd {
	return func() tea.Msg {
		return sessionMsg{stamp: stamp(gen), sess: a.ResolveSession(ctx)}
	}
}

func setupStateCmd(ctx context.Context, a *session.Authority, gen uint64) tea.Cmd {
	return func() tea.Msg {
		st, err := a.ResolveSetupState(ctx)
		return setupMsg{stamp: stamp(gen), state: st, err: err}
	}
}

func credentialsCmd(ctx context.Context, a *session.Authority, gen uint64, mode session.Mode, user, pass string) tea.Cmd {
	return func() tea.Msg {
		out, err := a.SubmitCredentials(ctx, mode, user, pass)
		return credsMsg{stamp: stamp(gen), mode: mode, out: out, err: err}
	}
}

func logoutCmd(ctx context.Context, a *session.Authority) tea.Cmd {
	return func() tea.Msg {
		// The identity is cleared whatever the server says.
		_ = a.Logout(ctx)
		return loggedOutMsg{}
	}
}

func problemsCmd(ctx context.Context, be Backend, gen uint64, f kbapi.ProblemFilter) tea.Cmd {
	return func() tea.Msg {
		ps, err := be.ListProblems(ctx, f)
		if err != nil {
			return errMsg{stamp(gen), err}
		}
		return problemsMsg{stamp(gen), ps}
	}
}

func problemCmd(ctx context.Context, be Backend, gen uint64, id int64) tea.Cmd {
	return func() tea.Msg {
		p, err := be.GetProblem(ctx, id)
		if err != nil {
			return errMsg{stamp(gen), err}
		}
		return problemMsg{stamp(gen), p}
	}
}

func usersCmd(ctx context.Context, be Backend, gen uint64) tea.Cmd {
	return func() tea.Msg {
		us, err := be.ListUsers(ctx)
		if err != nil {
			return errMsg{stamp(gen), err}
		}
		return usersMsg{stamp(gen), us}
	}
}

func categoriesCmd(ctx context.Context, be Backend, gen uint64) tea.Cmd {
	return func() tea.Msg {
		cs, err := be.ListCategories(ctx)
		if err != nil {
			return errMsg{stamp(gen), err}
		}
		return categoriesMsg{stamp(gen), cs}
	}
}

func tagsCmd(ctx context.Context, be Backend, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ts, err := be.ListTags(ctx)
		if err != nil {
			return errMsg{stamp(gen), err}
		}
		return tagsMsg{stamp(gen), ts}
	}
}

func submitCmd(ctx context.Context, be Backend, gen uint64, d intake.Draft) tea.Cmd {
	return func() tea.Msg {
		p, err := intake.Submit(ctx, be, d)
		return createdMsg{stamp: stamp(gen), problem: p, err: err}
	}
}
