// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package perfect

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tooldeck/tooldeck/pkg/sdk"
)

// Entry is the identifier manifests use to load this plugin.
const Entry = "tooldeck.perfect"

var (
	resultStyle = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// panel asks for a number and reports whether it is perfect or, more
// generally, k-perfect.
type panel struct {
	input  textinput.Model
	result string
}

func newPanel() sdk.Instance {
	in := textinput.New()
	in.Placeholder = "number to check"
	in.CharLimit = 19
	in.Focus()
	return &panel{input: in}
}

func (p *panel) Init() tea.Cmd { return textinput.Blink }

func (p *panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		p.result = check(p.input.Value())
		p.input.Reset()
		return p, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *panel) View() string {
	out := "Perfect number checker\n\n" + p.input.View() + "\n"
	if p.result != "" {
		out += "\n" + resultStyle.Render(p.result) + "\n"
	}
	out += "\n" + hintStyle.Render("enter: check")
	return out
}

// check parses the input and classifies it.
func check(raw string) string {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Sprintf("%q is not a positive integer", raw)
	}

	switch k := Classify(n); k {
	case 0:
		return fmt.Sprintf("%d is not multiperfect", n)
	case 2:
		return fmt.Sprintf("%d is perfect", n)
	default:
		return fmt.Sprintf("%d is %d-perfect", n, k)
	}
}

func init() {
	sdk.Register(sdk.Registration{
		Entry: Entry,
		New:   newPanel,
	})
}
