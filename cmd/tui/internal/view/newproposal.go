package view

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nferraro/gridswap/cmd/tui/internal/client"
)

type NewProposalModel struct {
	CommonModel
	api *client.Client

	form *huh.Form

	// Form bindings
	counterpart string
	ptype       string
	energy      string
	price       string
	validity    string
	externalID  string

	status string
	done   bool
}

func NewNewProposalModel(api *client.Client, peers []string) NewProposalModel {
	m := NewProposalModel{api: api}

	peerOptions := make([]huh.Option[string], len(peers))
	for i, p := range peers {
		peerOptions[i] = huh.NewOption(p, p)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Counterpart").
				Options(peerOptions...).
				Value(&m.counterpart),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Acquisition (buy energy)", "acquisition"),
					huh.NewOption("Sale (sell energy)", "sale"),
				).
				Value(&m.ptype),
			huh.NewInput().
				Title("Energy").
				Validate(validQuantity).
				Value(&m.energy),
			huh.NewInput().
				Title("Price per unit").
				Validate(validQuantity).
				Value(&m.price),
			huh.NewInput().
				Title("Valid until (YYYY-MM-DD)").
				Validate(validDate).
				Value(&m.validity),
			huh.NewInput().
				Title("Reference (optional)").
				Value(&m.externalID),
		),
	)

	return m
}

func validQuantity(s string) error {
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || q <= 0 {
		return fmt.Errorf("must be a positive number")
	}

	return nil
}

func validDate(s string) error {
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return fmt.Errorf("must be YYYY-MM-DD")
	}

	return nil
}

func (m NewProposalModel) Title() string     { return "New Proposal" }
func (m NewProposalModel) ShortHelp() string { return "Navigate form | Esc: back" }

func (m NewProposalModel) Init() tea.Cmd {
	return m.form.Init()
}

type proposalCreatedMsg struct {
	message string
	err     error
}

func (m NewProposalModel) submitCmd() tea.Cmd {
	energy, _ := strconv.ParseFloat(m.energy, 64)
	price, _ := strconv.ParseFloat(m.price, 64)
	validity, _ := time.Parse(time.DateOnly, m.validity)

	req := client.NewProposal{
		Counterpart:  m.counterpart,
		Energy:       energy,
		PricePerUnit: price,
		Validity:     validity,
		Type:         m.ptype,
		ExternalID:   m.externalID,
	}

	return func() tea.Msg {
		ctx, cancel := ApiCtx()
		defer cancel()

		message, err := m.api.CreateProposal(ctx, req)

		return proposalCreatedMsg{message: message, err: err}
	}
}

func (m NewProposalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case proposalCreatedMsg:
		m.done = true
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = msg.message
		}

		return m, nil

	case tea.KeyMsg:
		if msg.String() == "esc" || (m.done && msg.String() == "enter") {
			return m, Back
		}
	}

	if m.done {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.submitCmd()
	}

	return m, cmd
}

func (m NewProposalModel) View() string {
	if m.done {
		return m.Title() + "\n\n" + m.status + "\n\nEnter: back to menu"
	}

	return m.Title() + "\n\n" + m.form.View()
}
