// Package client reads a running arena game through its HTTP API.
package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"Nottingham/internal/api"
	"Nottingham/internal/game"
)

// Client connects to an arena via HTTP.
type Client struct {
	baseURL string       // baseURL is "http://" + the API address
	http    *http.Client // http carries the requests
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code    int    // Code is the HTTP status code
	Message string // Message is the server's error text, may be empty
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Status is the game progress.
type Status struct {
	Round   uint64 // Round is the number of completed rounds
	Ended   bool   // Ended is true once a winner is declared
	Winner  int    // Winner is the winner index, -1 while undecided
	Players int    // Players is the number of identities
}

// Round is a finished round as recorded by the arena.
type Round struct {
	Round   uint64      // Round is the round number
	Builder int         // Builder is the auction winner, -1 for empty rounds
	Bid     uint256.Int // Bid is the burned winning bid
	Empty   bool        // Empty is true when no trades occurred
	Failure string      // Failure describes a discarded build
	Winner  int         // Winner is the game winner, -1 while undecided
}

// NewClient creates a client for the API at addr (e.g. "127.0.0.1:8080").
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health reports whether the API answers.
func (c *Client) Health() error {
	var resp map[string]string
	if err := c.httpGet("/health", &resp); err != nil {
		return err
	}

	if resp["status"] != "ok" {
		return fmt.Errorf("unhealthy: %q", resp["status"])
	}

	return nil
}

// Status returns the game progress.
func (c *Client) Status() (*Status, error) {
	var resp api.StatusResponse
	if err := c.httpGet("/status", &resp); err != nil {
		return nil, fmt.Errorf("get status:\n%w", err)
	}

	return &Status{Round: resp.Round, Ended: resp.Ended, Winner: resp.Winner, Players: resp.Players}, nil
}

// Handles returns the hex identity handles in index order.
func (c *Client) Handles() ([]string, error) {
	var resp []api.PlayerResponse
	if err := c.httpGet("/players", &resp); err != nil {
		return nil, fmt.Errorf("get players:\n%w", err)
	}

	out := make([]string, len(resp))
	for _, p := range resp {
		if p.Index < 0 || p.Index >= len(out) {
			return nil, fmt.Errorf("player index %d out of range", p.Index)
		}
		out[p.Index] = p.Handle
	}

	return out, nil
}

// Reserves returns the market reserve vector.
func (c *Client) Reserves() ([]*uint256.Int, error) {
	var resp api.MarketResponse
	if err := c.httpGet("/market", &resp); err != nil {
		return nil, fmt.Errorf("get market:\n%w", err)
	}

	return parseAmounts(resp.Reserves)
}

// Prices returns the spot price of every asset in currency, scaled by one unit.
func (c *Client) Prices() ([]*uint256.Int, error) {
	var resp api.MarketResponse
	if err := c.httpGet("/market", &resp); err != nil {
		return nil, fmt.Errorf("get market:\n%w", err)
	}

	return parseAmounts(resp.Prices)
}

// Balances returns one player's balances.
func (c *Client) Balances(player int) ([]*uint256.Int, error) {
	var resp api.BalancesResponse
	if err := c.httpGet("/balances/"+strconv.Itoa(player), &resp); err != nil {
		return nil, fmt.Errorf("get balances of %d:\n%w", player, err)
	}

	return parseAmounts(resp.Balances)
}

// Scores returns every player's largest goods balance.
func (c *Client) Scores() ([]*uint256.Int, error) {
	var resp api.ScoresResponse
	if err := c.httpGet("/scores", &resp); err != nil {
		return nil, fmt.Errorf("get scores:\n%w", err)
	}

	return parseAmounts(resp.Scores)
}

// QuoteSell prices selling amount of from for to.
func (c *Client) QuoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	resp, err := c.quote("sell", "amount", from, to, amount)
	if err != nil {
		return nil, err
	}

	return parseAmount(resp.Output)
}

// QuoteBuy prices buying output of to with from.
func (c *Client) QuoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	resp, err := c.quote("buy", "output", from, to, output)
	if err != nil {
		return nil, err
	}

	return parseAmount(resp.Input)
}

// Rounds returns every recorded round, oldest first.
func (c *Client) Rounds() ([]Round, error) {
	var resp []api.RoundResponse
	if err := c.httpGet("/rounds", &resp); err != nil {
		return nil, fmt.Errorf("get rounds:\n%w", err)
	}

	out := make([]Round, len(resp))
	for i, r := range resp {
		bid, err := parseAmount(r.Bid)
		if err != nil {
			return nil, fmt.Errorf("round %d:\n%w", r.Round, err)
		}

		out[i] = Round{
			Round:   r.Round,
			Builder: r.Builder,
			Bid:     *bid,
			Empty:   r.Empty,
			Failure: r.Failure,
			Winner:  r.Winner,
		}
	}

	return out, nil
}

// Outcomes returns the settlements of one round, in settlement order.
func (c *Client) Outcomes(round uint64) ([]game.Outcome, error) {
	var resp []api.OutcomeResponse
	if err := c.httpGet(fmt.Sprintf("/rounds/%d/outcomes", round), &resp); err != nil {
		return nil, fmt.Errorf("get outcomes of round %d:\n%w", round, err)
	}

	out := make([]game.Outcome, len(resp))
	for i, r := range resp {
		o, err := parseOutcome(round, r)
		if err != nil {
			return nil, fmt.Errorf("outcome %d of round %d:\n%w", i, round, err)
		}
		out[i] = o
	}

	return out, nil
}

func (c *Client) quote(side, param string, from, to game.Asset, amount *uint256.Int) (*api.QuoteResponse, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(int(from)))
	q.Set("to", strconv.Itoa(int(to)))
	q.Set(param, amount.Dec())

	var resp api.QuoteResponse
	if err := c.httpGet("/quote/"+side+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("quote %s:\n%w", side, err)
	}

	return &resp, nil
}

func parseOutcome(round uint64, r api.OutcomeResponse) (game.Outcome, error) {
	o := game.Outcome{
		Round:   round,
		Builder: r.Builder,
		Target:  r.Target,
		Success: r.Success,
		Reason:  r.Reason,
	}

	tip, err := parseAmount(r.Tip)
	if err != nil {
		return o, err
	}
	o.Bundle.Tip.Set(tip)

	for _, s := range r.Swaps {
		amount, err := parseAmount(s.Amount)
		if err != nil {
			return o, err
		}

		minOutput, err := parseAmount(s.MinOutput)
		if err != nil {
			return o, err
		}

		o.Bundle.Swaps = append(o.Bundle.Swaps, game.NewSwap(game.Asset(s.From), game.Asset(s.To), amount, minOutput))
	}

	return o, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func parseAmounts(ss []string) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(ss))
	for i, s := range ss {
		v, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
