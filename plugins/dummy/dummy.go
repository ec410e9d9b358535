// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package dummy bundles a placeholder panel, useful for trying out the
// shell and as a minimal example of the plugin surface.
package dummy

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tooldeck/tooldeck/pkg/sdk"
)

// Entry is the identifier manifests use to load this plugin.
const Entry = "tooldeck.dummy"

var bodyStyle = lipgloss.NewStyle().Faint(true)

// panel displays static text and counts the keys it receives.
type panel struct {
	keys int
}

func (p *panel) Init() tea.Cmd { return nil }

func (p *panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		p.keys++
	}
	return p, nil
}

func (p *panel) View() string {
	return "Dummy\n\n" + bodyStyle.Render(fmt.Sprintf("Nothing to see here. Keys received: %d", p.keys))
}

func init() {
	sdk.Register(sdk.Registration{
		Entry: Entry,
		New:   func() sdk.Instance { return &panel{} },
	})
}
