// Package client is a thin HTTP client for the node API used by the TUI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Envelope is the node's uniform mutation/error response.
type Envelope struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

type Proposal struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Issuer       string    `json:"issuer"`
	Counterpart  string    `json:"counterpart"`
	Timestamp    time.Time `json:"timestamp"`
	Energy       float64   `json:"energy"`
	PricePerUnit float64   `json:"price_per_unit"`
	Validity     time.Time `json:"validity"`
	Type         string    `json:"type"`
	Consumed     bool      `json:"consumed"`
}

type Transaction struct {
	ID           string    `json:"id"`
	Buyer        string    `json:"buyer"`
	Seller       string    `json:"seller"`
	Timestamp    time.Time `json:"timestamp"`
	Energy       float64   `json:"energy"`
	PricePerUnit float64   `json:"price_per_unit"`
	TotalPrice   float64   `json:"total_price"`
	ProposalID   string    `json:"proposal_id"`
}

type Aggregate struct {
	TotalSold   float64 `json:"total_sold"`
	TotalBought float64 `json:"total_bought"`
}

type Balance struct {
	Org      string  `json:"org"`
	Quantity float64 `json:"quantity"`
}

type Peer struct {
	Org string `json:"org"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
			return fmt.Errorf("%s", env.Message)
		}

		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Login authenticates the operator and stores the bearer token for every
// later call.
func (c *Client) Login(ctx context.Context, password string) error {
	var resp struct {
		Token string `json:"token"`
	}

	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"password": password}, &resp)
	if err != nil {
		return err
	}

	c.token = resp.Token

	return nil
}

func (c *Client) Me(ctx context.Context) (string, error) {
	var resp struct {
		Org string `json:"org"`
	}

	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return "", err
	}

	return resp.Org, nil
}

func (c *Client) Peers(ctx context.Context) ([]Peer, error) {
	var peers []Peer
	if err := c.do(ctx, http.MethodGet, "/api/peers", nil, &peers); err != nil {
		return nil, err
	}

	return peers, nil
}

func (c *Client) Proposals(ctx context.Context, scope string) ([]Proposal, error) {
	path := "/api/proposals"
	if scope != "" {
		path += "/" + scope
	}

	var props []Proposal
	if err := c.do(ctx, http.MethodGet, path, nil, &props); err != nil {
		return nil, err
	}

	return props, nil
}

type NewProposal struct {
	Counterpart  string    `json:"counterpart"`
	Energy       float64   `json:"energy"`
	PricePerUnit float64   `json:"price_per_unit"`
	Validity     time.Time `json:"validity"`
	Type         string    `json:"type"`
	ExternalID   string    `json:"external_id"`
}

func (c *Client) CreateProposal(ctx context.Context, p NewProposal) (string, error) {
	var env Envelope
	if err := c.do(ctx, http.MethodPost, "/api/proposals", p, &env); err != nil {
		return "", err
	}

	return env.Message, nil
}

func (c *Client) IssueProposal(ctx context.Context, id string) (string, error) {
	var env Envelope

	err := c.do(ctx, http.MethodPost, "/api/proposals/issue", map[string]string{"proposal_id": id}, &env)
	if err != nil {
		return "", err
	}

	return env.Message, nil
}

func (c *Client) EndProposal(ctx context.Context, id string) (string, error) {
	var env Envelope
	if err := c.do(ctx, http.MethodDelete, "/api/proposals/"+id, nil, &env); err != nil {
		return "", err
	}

	return env.Message, nil
}

func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions?status=all", nil, &txs); err != nil {
		return nil, err
	}

	return txs, nil
}

func (c *Client) Aggregate(ctx context.Context) (Aggregate, error) {
	var agg Aggregate
	if err := c.do(ctx, http.MethodGet, "/api/transactions/aggregate", nil, &agg); err != nil {
		return Aggregate{}, err
	}

	return agg, nil
}

func (c *Client) Balance(ctx context.Context) (Balance, error) {
	var bal Balance
	if err := c.do(ctx, http.MethodGet, "/api/balance", nil, &bal); err != nil {
		return Balance{}, err
	}

	return bal, nil
}
