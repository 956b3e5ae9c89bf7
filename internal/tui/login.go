package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"techwiki/internal/access"
	"techwiki/internal/session"
)

func (m Model) enterLogin() (tea.Model, tea.Cmd) {
	m.teardown()
	m.st = stateLogin
	m.mode = session.ModeLogin
	m.settled = false
	m.pass.SetValue("")
	m.pass.Blur()
	cmd := m.user.Focus()
	return m, tea.Batch(cmd, textinput.Blink, setupStateCmd(m.ctx, m.auth, m.gen))
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case setupMsg:
		m.settled = true
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		return m, nil

	case credsMsg:
		m.inFlight = false
		m.pass.SetValue("")
		if msg.err != nil {
			m.err = msg.err.Error()
			m.info = ""
			return m, nil
		}
		if msg.mode == session.ModeSetup {
			m.mode = msg.out.NextMode
			m.info = msg.out.Message
			m.err = ""
			return m, nil
		}
		m.info = ""
		return m.enterMain(access.RouteHome)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab", "up", "down":
			if m.user.Focused() {
				m.user.Blur()
				return m, m.pass.Focus()
			}
			m.pass.Blur()
			return m, m.user.Focus()
		case "ctrl+t":
			// Setup is only offered once the probe said the backend has no admin.
			if m.mode == session.ModeSetup {
				m.mode = session.ModeLogin
			} else if m.auth.SetupOffered() {
				m.mode = session.ModeSetup
			}
			m.err, m.info = "", ""
			return m, nil
		case "enter":
			if m.inFlight {
				return m, nil
			}
			if m.user.Focused() && m.pass.Value() == "" {
				m.user.Blur()
				return m, m.pass.Focus()
			}
			user := strings.TrimSpace(m.user.Value())
			if user == "" || m.pass.Value() == "" {
				m.err = "username and password are required"
				return m, nil
			}
			m.inFlight = true
			m.err, m.info = "", ""
			return m, credentialsCmd(m.ctx, m.auth, m.gen, m.mode, user, m.pass.Value())
		}
	}

	var cmd tea.Cmd
	if m.user.Focused() {
		m.user, cmd = m.user.Update(msg)
	} else {
		m.pass, cmd = m.pass.Update(msg)
	}
	return m, cmd
}

func (m Model) viewLogin(b *strings.Builder) {
	title := "Sign in"
	if m.mode == session.ModeSetup {
		title = "Create the first administrator"
	}
	b.WriteString(title + "\n\n")
	b.WriteString(m.user.View() + "\n")
	b.WriteString(m.pass.View() + "\n\n")

	switch {
	case !m.settled:
		b.WriteString("checking server...\n")
	case m.mode == session.ModeSetup:
		b.WriteString("ctrl+t: back to sign in\n")
	case m.auth.SetupOffered():
		b.WriteString("No administrator yet. ctrl+t: initial setup\n")
	}
	if m.inFlight {
		b.WriteString("working...\n")
	}
	b.WriteString("enter: submit  tab: switch field  esc: quit\n")
}
