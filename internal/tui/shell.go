// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package tui renders the tooldeck shell: a plugins menu, the list of
// open sessions, and the active session's panel. It is a presenter over
// the plugin and session registries and holds no lifecycle of its own;
// registry signals arrive as bubbletea messages.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tooldeck/tooldeck/internal/plugin"
	"github.com/tooldeck/tooldeck/internal/session"
	"github.com/tooldeck/tooldeck/pkg/sdk"
)

// Messages delivered by the registry subscriptions wired in cmd/tooldeck.
type (
	// PluginsChangedMsg carries the discovered names in discovery order.
	PluginsChangedMsg struct{ Names []string }

	// SessionsChangedMsg signals that the session set changed; the shell
	// pulls a fresh snapshot from the registry.
	SessionsChangedMsg struct{}

	// SessionRemovedMsg lets the shell release the view state tied to a
	// removed instance.
	SessionRemovedMsg struct {
		Position int
		Instance sdk.Instance
	}
)

// focus identifies which column receives key input.
type focus int

const (
	focusMenu focus = iota
	focusSessions
	focusPanel
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	columnStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedColumn = columnStyle.BorderForeground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

// Shell is the root bubbletea model.
type Shell struct {
	plugins  *plugin.Registry
	sessions *session.Registry

	names    []string          // discovered plugin names
	open     []session.Session // session snapshot
	panels   map[string]tea.Model
	focus    focus
	menuSel  int
	sessSel  int
	status   string
	width    int
	height   int
	quitting bool

	renaming bool
	rename   textinput.Model
}

// NewShell creates the shell over the two registries.
func NewShell(plugins *plugin.Registry, sessions *session.Registry) *Shell {
	return &Shell{
		plugins:  plugins,
		sessions: sessions,
		names:    plugins.Plugins(),
		panels:   make(map[string]tea.Model),
	}
}

// Init implements tea.Model.
func (s *Shell) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width, s.height = msg.Width, msg.Height
		return s, nil

	case PluginsChangedMsg:
		s.names = msg.Names
		if s.menuSel >= len(s.names) {
			s.menuSel = max(0, len(s.names)-1)
		}
		return s, nil

	case SessionsChangedMsg:
		s.refreshSessions()
		return s, nil

	case SessionRemovedMsg:
		s.refreshSessions()
		return s, nil

	case tea.KeyMsg:
		return s.updateKeys(msg)
	}

	return s.updatePanel(msg)
}

// refreshSessions pulls a new snapshot and drops view state for sessions
// that no longer exist. Identities are never reused, so pruning by ID is
// exact. Instances themselves are never compared; their dynamic types need
// not be comparable.
func (s *Shell) refreshSessions() {
	s.open = s.sessions.Sessions()

	live := make(map[string]struct{}, len(s.open))
	for _, sess := range s.open {
		live[sess.ID] = struct{}{}
	}
	for id := range s.panels {
		if _, ok := live[id]; !ok {
			delete(s.panels, id)
		}
	}

	if s.sessSel >= len(s.open) {
		s.sessSel = max(0, len(s.open)-1)
	}
}

func (s *Shell) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if s.renaming {
		return s.updateRenameKeys(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if s.focus != focusPanel || msg.String() == "ctrl+c" {
			s.quitting = true
			return s, tea.Quit
		}

	case "tab":
		s.focus = (s.focus + 1) % 3
		return s, nil

	case "r":
		if s.focus == focusMenu {
			s.plugins.Rescan()
			return s, nil
		}
	}

	switch s.focus {
	case focusMenu:
		return s.updateMenuKeys(msg)
	case focusSessions:
		return s.updateSessionKeys(msg)
	case focusPanel:
		return s.updatePanel(msg)
	}
	return s, nil
}

func (s *Shell) updateMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if s.menuSel > 0 {
			s.menuSel--
		}
	case "down", "j":
		if s.menuSel < len(s.names)-1 {
			s.menuSel++
		}
	case "enter":
		if s.menuSel < len(s.names) {
			return s, s.openPlugin(s.names[s.menuSel])
		}
	}
	return s, nil
}

// openPlugin instantiates the named plugin and opens a session for it.
func (s *Shell) openPlugin(name string) tea.Cmd {
	inst, err := s.plugins.Instantiate(name)
	if err != nil {
		s.status = errorStyle.Render(fmt.Sprintf("cannot open %s: %v", name, err))
		return nil
	}

	id := s.sessions.Open(name, inst)
	s.panels[id] = inst
	s.open = s.sessions.Sessions()
	s.sessSel = len(s.open) - 1
	s.focus = focusPanel
	s.status = ""
	return inst.Init()
}

func (s *Shell) updateSessionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if s.sessSel > 0 {
			s.sessSel--
		}
	case "down", "j":
		if s.sessSel < len(s.open)-1 {
			s.sessSel++
		}
	case "enter":
		if len(s.open) > 0 {
			s.focus = focusPanel
		}
	case "r":
		if len(s.open) > 0 {
			return s, s.startRename()
		}
	case "x", "delete":
		if len(s.open) > 0 {
			if err := s.sessions.RemoveAt(s.sessSel); err != nil {
				s.status = errorStyle.Render(err.Error())
			}
		}
	}
	return s, nil
}

// startRename opens an inline editor over the selected session's label.
func (s *Shell) startRename() tea.Cmd {
	in := textinput.New()
	in.SetValue(s.open[s.sessSel].Label)
	in.CursorEnd()
	in.Focus()
	s.rename = in
	s.renaming = true
	return textinput.Blink
}

// updateRenameKeys routes keys into the label editor until it is committed
// or abandoned.
func (s *Shell) updateRenameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		s.quitting = true
		return s, tea.Quit
	case "esc":
		s.renaming = false
		return s, nil
	case "enter":
		s.renaming = false
		if err := s.sessions.SetLabelAt(s.sessSel, s.rename.Value()); err != nil {
			s.status = errorStyle.Render(err.Error())
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.rename, cmd = s.rename.Update(msg)
	return s, cmd
}

// updatePanel forwards a message to the focused session's panel.
func (s *Shell) updatePanel(msg tea.Msg) (tea.Model, tea.Cmd) {
	if s.sessSel >= len(s.open) {
		return s, nil
	}
	id := s.open[s.sessSel].ID
	panel, ok := s.panels[id]
	if !ok {
		return s, nil
	}

	next, cmd := panel.Update(msg)
	s.panels[id] = next
	return s, cmd
}

// View implements tea.Model.
func (s *Shell) View() string {
	if s.quitting {
		return ""
	}

	left := lipgloss.JoinVertical(lipgloss.Left, s.menuView(), s.sessionsView())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, s.panelView())

	footer := faintStyle.Render("tab: focus · enter: open/select · x: close session · r: rescan/rename · q: quit")
	if s.status != "" {
		footer = s.status
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (s *Shell) menuView() string {
	out := titleStyle.Render("Plugins") + "\n"
	if len(s.names) == 0 {
		out += faintStyle.Render("(none discovered)")
	}
	for i, name := range s.names {
		line := "  " + name
		if i == s.menuSel && s.focus == focusMenu {
			line = selectedStyle.Render("> " + name)
		}
		out += line + "\n"
	}
	return s.column(focusMenu).Render(out)
}

func (s *Shell) sessionsView() string {
	out := titleStyle.Render("Sessions") + "\n"
	if len(s.open) == 0 {
		out += faintStyle.Render("(none open)")
	}
	for i, sess := range s.open {
		line := "  " + sess.Label
		if i == s.sessSel && s.focus == focusSessions {
			if s.renaming {
				line = "> " + s.rename.View()
			} else {
				line = selectedStyle.Render("> " + sess.Label)
			}
		}
		out += line + "\n"
	}
	return s.column(focusSessions).Render(out)
}

func (s *Shell) panelView() string {
	if s.sessSel < len(s.open) {
		if panel, ok := s.panels[s.open[s.sessSel].ID]; ok {
			return s.column(focusPanel).Render(panel.View())
		}
	}
	return s.column(focusPanel).Render(faintStyle.Render("open a plugin from the menu"))
}

func (s *Shell) column(f focus) lipgloss.Style {
	if s.focus == f {
		return focusedColumn
	}
	return columnStyle
}
