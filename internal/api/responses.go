package api

import "Nottingham/internal/game"

// Response bodies. Amounts are decimal strings in smallest units.

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Round   uint64 `json:"round"`
	Ended   bool   `json:"ended"`
	Winner  int    `json:"winner"`
	Players int    `json:"players"`
}

// PlayerResponse is one entry of GET /players.
type PlayerResponse struct {
	Index  int    `json:"index"`
	Handle string `json:"handle"`
}

// MarketResponse is the body of GET /market.
type MarketResponse struct {
	Reserves []string `json:"reserves"`
	Prices   []string `json:"prices"` // Prices are in currency, scaled by one unit
}

// BalancesResponse is the body of GET /balances/{player}.
type BalancesResponse struct {
	Player   int      `json:"player"`
	Balances []string `json:"balances"`
}

// ScoresResponse is the body of GET /scores.
type ScoresResponse struct {
	Scores []string `json:"scores"`
}

// QuoteResponse is the body of both quote endpoints.
type QuoteResponse struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// RoundResponse is one entry of GET /rounds.
type RoundResponse struct {
	Round   uint64 `json:"round"`
	Builder int    `json:"builder"`
	Bid     string `json:"bid"`
	Empty   bool   `json:"empty"`
	Failure string `json:"failure,omitempty"`
	Winner  int    `json:"winner"`
}

// SwapResponse is one leg of a settled bundle.
type SwapResponse struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Amount    string `json:"amount"`
	MinOutput string `json:"minOutput"`
}

// OutcomeResponse is one entry of GET /rounds/{round}/outcomes.
type OutcomeResponse struct {
	Builder int            `json:"builder"`
	Target  int            `json:"target"`
	Success bool           `json:"success"`
	Reason  string         `json:"reason,omitempty"`
	Swaps   []SwapResponse `json:"swaps"`
	Tip     string         `json:"tip"`
}

func newRoundResponse(s game.RoundSummary) RoundResponse {
	return RoundResponse{
		Round:   s.Round,
		Builder: s.Builder,
		Bid:     s.Bid.Dec(),
		Empty:   s.Empty,
		Failure: s.Failure,
		Winner:  s.Winner,
	}
}

func newOutcomeResponse(o game.Outcome) OutcomeResponse {
	out := OutcomeResponse{
		Builder: o.Builder,
		Target:  o.Target,
		Success: o.Success,
		Reason:  o.Reason,
		Swaps:   make([]SwapResponse, len(o.Bundle.Swaps)),
		Tip:     o.Bundle.Tip.Dec(),
	}

	for i, s := range o.Bundle.Swaps {
		out.Swaps[i] = SwapResponse{
			From:      int(s.From),
			To:        int(s.To),
			Amount:    s.Amount.Dec(),
			MinOutput: s.MinOutput.Dec(),
		}
	}

	return out
}
