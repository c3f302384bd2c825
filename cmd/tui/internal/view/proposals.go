package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nferraro/gridswap/cmd/tui/internal/client"
)

var proposalScopes = []string{"", "mine", "received"}

type ProposalsModel struct {
	CommonModel
	api *client.Client

	table    table.Model
	props    []client.Proposal
	scopeIdx int

	loading bool
	err     error
	status  string
}

func NewProposalsModel(api *client.Client) ProposalsModel {
	columns := []table.Column{
		{Title: "ID", Width: 36},
		{Title: "Type", Width: 12},
		{Title: "Issuer", Width: 14},
		{Title: "Counterpart", Width: 14},
		{Title: "Energy", Width: 10},
		{Title: "Price", Width: 10},
		{Title: "Valid Until", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ProposalsModel{api: api, table: t}
}

func (m ProposalsModel) Title() string { return "Open Proposals" }
func (m ProposalsModel) ShortHelp() string {
	return "Esc: back | i: issue | x: end | s: scope | r: refresh"
}

type loadProposalsMsg struct {
	props []client.Proposal
	err   error
}

type proposalActionMsg struct {
	message string
	err     error
}

func (m ProposalsModel) loadCmd() tea.Cmd {
	scope := proposalScopes[m.scopeIdx]

	return func() tea.Msg {
		ctx, cancel := ApiCtx()
		defer cancel()

		props, err := m.api.Proposals(ctx, scope)

		return loadProposalsMsg{props: props, err: err}
	}
}

func (m ProposalsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ProposalsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadProposalsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.props = msg.props
		m.refreshTable()

		return m, nil

	case proposalActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = msg.message

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.scopeIdx = (m.scopeIdx + 1) % len(proposalScopes)
			return m, m.loadCmd()
		case "i":
			if id := m.selectedID(); id != "" {
				return m, m.issueCmd(id)
			}
		case "x":
			if id := m.selectedID(); id != "" {
				return m, m.endCmd(id)
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ProposalsModel) selectedID() string {
	row := m.table.SelectedRow()
	if row == nil {
		return ""
	}

	return row[0]
}

func (m ProposalsModel) issueCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := ApiCtx()
		defer cancel()

		message, err := m.api.IssueProposal(ctx, id)

		return proposalActionMsg{message: message, err: err}
	}
}

func (m ProposalsModel) endCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := ApiCtx()
		defer cancel()

		message, err := m.api.EndProposal(ctx, id)

		return proposalActionMsg{message: message, err: err}
	}
}

func (m *ProposalsModel) refreshTable() {
	rows := make([]table.Row, len(m.props))
	for i, p := range m.props {
		rows[i] = table.Row{
			p.ID,
			p.Type,
			p.Issuer,
			p.Counterpart,
			FormatQuantity(p.Energy),
			FormatQuantity(p.PricePerUnit),
			FormatDate(p.Validity),
		}
	}

	m.table.SetRows(rows)
}

func (m ProposalsModel) View() string {
	scope := proposalScopes[m.scopeIdx]
	if scope == "" {
		scope = "all"
	}

	header := fmt.Sprintf("%s (%s)\n\n", m.Title(), scope)

	if m.loading {
		return header + "Loading..."
	}

	if m.err != nil {
		return header + fmt.Sprintf("Error: %v\n\nr: retry | Esc: back", m.err)
	}

	out := header + m.table.View() + "\n"

	if m.status != "" {
		out += "\n" + m.status + "\n"
	}

	return out + "\n" + m.ShortHelp()
}
