package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/nferraro/gridswap/cmd/tui/internal/client"
	"github.com/nferraro/gridswap/cmd/tui/internal/view"
)

type model struct {
	api   *client.Client
	org   string
	peers []string

	currentView View

	proposalsView   view.ProposalsModel
	newProposalView view.NewProposalModel
	tradesView      view.TradesModel
}

type View int

const (
	ViewMenu        View = 0
	ViewProposals   View = 1
	ViewNewProposal View = 2
	ViewTrades      View = 3
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func initialModel() model {
	_ = godotenv.Load()

	api := client.New(envOr("API_URL", "http://localhost:8080"))

	ctx, cancel := view.ApiCtx()
	defer cancel()

	if err := api.Login(ctx, envOr("API_PASSWORD", "admin")); err != nil {
		slog.Error("failed to log in to node", "error", err)
		os.Exit(1)
	}

	org, err := api.Me(ctx)
	if err != nil {
		slog.Error("failed to query node identity", "error", err)
		os.Exit(1)
	}

	peerList, err := api.Peers(ctx)
	if err != nil {
		slog.Error("failed to query peers", "error", err)
		os.Exit(1)
	}

	peers := make([]string, len(peerList))
	for i, p := range peerList {
		peers[i] = p.Org
	}

	return model{
		api:             api,
		org:             org,
		peers:           peers,
		currentView:     ViewMenu,
		proposalsView:   view.NewProposalsModel(api),
		newProposalView: view.NewNewProposalModel(api, peers),
		tradesView:      view.NewTradesModel(api),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewProposals
				m.proposalsView = view.NewProposalsModel(m.api)

				return m, m.proposalsView.Init()
			case "2":
				m.currentView = ViewNewProposal
				m.newProposalView = view.NewNewProposalModel(m.api, m.peers)

				return m, m.newProposalView.Init()
			case "3":
				m.currentView = ViewTrades
				m.tradesView = view.NewTradesModel(m.api)

				return m, m.tradesView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewProposals:
		var newModel tea.Model
		newModel, cmd = m.proposalsView.Update(msg)
		m.proposalsView = newModel.(view.ProposalsModel)
	case ViewNewProposal:
		var newModel tea.Model
		newModel, cmd = m.newProposalView.Update(msg)
		m.newProposalView = newModel.(view.NewProposalModel)
	case ViewTrades:
		var newModel tea.Model
		newModel, cmd = m.tradesView.Update(msg)
		m.tradesView = newModel.(view.TradesModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"GridSwap TUI (" + m.org + ")\n\n" +
				"1. Browse Proposals\n" +
				"2. New Proposal\n" +
				"3. Settled Trades\n\n" +
				"q. Quit",
		)
	case ViewProposals:
		return m.proposalsView.View()
	case ViewNewProposal:
		return m.newProposalView.View()
	case ViewTrades:
		return m.tradesView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
