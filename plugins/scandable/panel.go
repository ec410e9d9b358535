// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package scandable

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tooldeck/tooldeck/pkg/sdk"
)

// Entry is the identifier manifests use to load this plugin.
const Entry = "tooldeck.scandable"

var (
	digitStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
)

// panel scans a typed phrase into its digit string.
type panel struct {
	input  textinput.Model
	result string
}

func newPanel() sdk.Instance {
	in := textinput.New()
	in.Placeholder = "mnemonic phrase"
	in.Focus()
	return &panel{input: in}
}

func (p *panel) Init() tea.Cmd { return textinput.Blink }

func (p *panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		if digits, ok := Scan(p.input.Value()); ok {
			p.result = fmt.Sprintf("scans to %s", digitStyle.Render(digits))
		} else {
			p.result = "phrase does not scan"
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *panel) View() string {
	out := "Phrase scanner\n\n" + p.input.View() + "\n"
	if p.result != "" {
		out += "\n" + p.result + "\n"
	}
	out += "\n" + hintStyle.Render("enter: scan · each word encodes its letter count, ten letters for 0")
	return out
}

func init() {
	sdk.Register(sdk.Registration{
		Entry: Entry,
		New:   newPanel,
	})
}
