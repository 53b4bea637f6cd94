package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/mongo-bridge/mongo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#00684A")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	argStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#00684A"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newShellCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session against the connected server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("shell requires a terminal")
			}
			p := tea.NewProgram(newShellModel(g.connect), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
}

type connectFunc func(ctx context.Context) (*mongo.Client, func(), error)

// operation is one entry of the shell menu.
type operation struct {
	run  func(ctx context.Context, c *mongo.Client, args []string) (any, error)
	name string
	args []string
}

var operations = []operation{
	{
		name: "databases",
		run: func(ctx context.Context, c *mongo.Client, _ []string) (any, error) {
			return c.ListDatabases(ctx)
		},
	},
	{
		name: "collections",
		args: []string{"database"},
		run: func(ctx context.Context, c *mongo.Client, args []string) (any, error) {
			return c.Database(args[0]).ListCollectionNames(ctx)
		},
	},
	{
		name: "find",
		args: []string{"database", "collection", "filter"},
		run: func(ctx context.Context, c *mongo.Client, args []string) (any, error) {
			f, err := parseDocument("filter", args[2])
			if err != nil {
				return nil, err
			}
			return c.Database(args[0]).Collection(args[1]).Find(ctx, f, nil)
		},
	},
	{
		name: "count",
		args: []string{"database", "collection", "filter"},
		run: func(ctx context.Context, c *mongo.Client, args []string) (any, error) {
			f, err := parseDocument("filter", args[2])
			if err != nil {
				return nil, err
			}
			return c.Database(args[0]).Collection(args[1]).Count(ctx, f)
		},
	},
	{
		name: "insert",
		args: []string{"database", "collection", "document"},
		run: func(ctx context.Context, c *mongo.Client, args []string) (any, error) {
			doc, err := parseDocument("document", args[2])
			if err != nil {
				return nil, err
			}
			return c.Database(args[0]).Collection(args[1]).InsertOne(ctx, doc)
		},
	},
}

type shellState int

const (
	stateSelectOp shellState = iota
	stateInputArgs
	stateShowResult
)

type shellModel struct {
	err      error
	client   *mongo.Client
	connect  connectFunc
	done     func()
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    shellState
}

func newShellModel(connect connectFunc) *shellModel {
	return &shellModel{connect: connect, state: stateSelectOp}
}

type connectedMsg struct {
	err    error
	client *mongo.Client
	done   func()
}

type resultMsg struct {
	err    error
	result string
}

func (m *shellModel) Init() tea.Cmd {
	return func() tea.Msg {
		client, done, err := m.connect(context.Background())
		return connectedMsg{client: client, done: done, err: err}
	}
}

func (m *shellModel) close() {
	if m.done != nil {
		m.done()
		m.done = nil
	}
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(operations)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if m.client == nil {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.run
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.run

			case stateShowResult:
				m.reset()
				return m, nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			if m.state != stateSelectOp {
				m.reset()
				return m, nil
			}
		}

	case connectedMsg:
		m.err = msg.err
		m.client = msg.client
		m.done = msg.done
		return m, nil

	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *shellModel) reset() {
	m.state = stateSelectOp
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *shellModel) prepareInputs() {
	op := operations[m.selected]
	m.inputs = make([]textinput.Model, len(op.args))
	for i, name := range op.args {
		ti := textinput.New()
		ti.Prompt = name + ": "
		ti.Width = 60
		if name == "filter" {
			ti.Placeholder = "{}"
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *shellModel) run() tea.Msg {
	op := operations[m.selected]
	args := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		args[i] = strings.TrimSpace(in.Value())
	}

	v, err := op.run(context.Background(), m.client, args)
	if err != nil {
		return resultMsg{err: err}
	}
	var b strings.Builder
	if err := printJSON(&b, v); err != nil {
		return resultMsg{err: err}
	}
	return resultMsg{result: strings.TrimRight(b.String(), "\n")}
}

func (m *shellModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.client == nil {
		return "Connecting..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Mongo Bridge"))
	fmt.Fprintf(&b, " client %d\n\n", m.client.ID())

	op := operations[m.selected]
	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, o := range operations {
			line := formatOp(o)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		fmt.Fprintf(&b, "Running %s\n\n", opStyle.Render(op.name))
		for _, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		fmt.Fprintf(&b, "Result of %s:\n\n", opStyle.Render(op.name))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func formatOp(o operation) string {
	args := make([]string, len(o.args))
	for i, a := range o.args {
		args[i] = argStyle.Render(a)
	}
	return opStyle.Render(o.name) + "(" + strings.Join(args, ", ") + ")"
}
