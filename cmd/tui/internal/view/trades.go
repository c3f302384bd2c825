package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nferraro/gridswap/cmd/tui/internal/client"
)

type TradesModel struct {
	CommonModel
	api *client.Client

	table   table.Model
	txs     []client.Transaction
	agg     client.Aggregate
	balance client.Balance

	loading bool
	err     error
}

func NewTradesModel(api *client.Client) TradesModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Buyer", Width: 14},
		{Title: "Seller", Width: 14},
		{Title: "Energy", Width: 10},
		{Title: "Price", Width: 10},
		{Title: "Total", Width: 12},
		{Title: "Proposal", Width: 36},
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

	return TradesModel{api: api, table: t}
}

func (m TradesModel) Title() string     { return "Settled Trades" }
func (m TradesModel) ShortHelp() string { return "Esc: back | r: refresh" }

type loadTradesMsg struct {
	txs     []client.Transaction
	agg     client.Aggregate
	balance client.Balance
	err     error
}

func (m TradesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := ApiCtx()
		defer cancel()

		txs, err := m.api.Transactions(ctx)
		if err != nil {
			return loadTradesMsg{err: err}
		}

		agg, err := m.api.Aggregate(ctx)
		if err != nil {
			return loadTradesMsg{err: err}
		}

		balance, err := m.api.Balance(ctx)
		if err != nil {
			return loadTradesMsg{err: err}
		}

		return loadTradesMsg{txs: txs, agg: agg, balance: balance}
	}
}

func (m TradesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TradesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTradesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.txs = msg.txs
		m.agg = msg.agg
		m.balance = msg.balance
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *TradesModel) refreshTable() {
	rows := make([]table.Row, len(m.txs))
	for i, tx := range m.txs {
		rows[i] = table.Row{
			FormatDate(tx.Timestamp),
			tx.Buyer,
			tx.Seller,
			FormatQuantity(tx.Energy),
			FormatQuantity(tx.PricePerUnit),
			FormatQuantity(tx.TotalPrice),
			tx.ProposalID,
		}
	}

	m.table.SetRows(rows)
}

func (m TradesModel) View() string {
	header := m.Title() + "\n\n"

	if m.loading {
		return header + "Loading..."
	}

	if m.err != nil {
		return header + fmt.Sprintf("Error: %v\n\nr: retry | Esc: back", m.err)
	}

	summary := fmt.Sprintf("Balance: %s kWh | Sold: %s | Bought: %s\n\n",
		FormatQuantity(m.balance.Quantity),
		FormatQuantity(m.agg.TotalSold),
		FormatQuantity(m.agg.TotalBought),
	)

	return header + summary + m.table.View() + "\n\n" + m.ShortHelp()
}
