package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
)

// errNotFound marks requests for players or rounds that do not exist.
var errNotFound = errors.New("not found")

// quoteParams are the validated parameters of a quote request.
type quoteParams struct {
	from   game.Asset   // from is the asset paid
	to     game.Asset   // to is the asset received
	amount *uint256.Int // amount is the sell input or the buy output
}

// parsePlayer validates a player index path segment.
func parsePlayer(raw string, players int) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid player %q", raw)
	}

	if i < 0 || i >= players {
		return 0, fmt.Errorf("player %d: %w", i, errNotFound)
	}

	return i, nil
}

// parseRound validates a round path segment. Rounds not played yet are unknown.
func parseRound(raw string, completed uint64) (uint64, error) {
	round, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid round %q", raw)
	}

	if round == 0 || round > completed {
		return 0, fmt.Errorf("round %d: %w", round, errNotFound)
	}

	return round, nil
}

// parseAsset validates an asset query parameter.
func parseAsset(raw string, assets int) (game.Asset, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing asset")
	}

	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid asset %q", raw)
	}

	a := game.Asset(i)
	if !a.Valid(assets) {
		return 0, fmt.Errorf("%w: %d", game.ErrInvalidAsset, i)
	}

	return a, nil
}

// parseQuote reads from, to and the named amount parameter.
func parseQuote(r *http.Request, amountParam string, assets int) (*quoteParams, error) {
	q := r.URL.Query()

	from, err := parseAsset(q.Get("from"), assets)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	to, err := parseAsset(q.Get("to"), assets)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	raw := q.Get(amountParam)
	if raw == "" {
		return nil, fmt.Errorf("missing %s", amountParam)
	}

	amount, err := game.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", amountParam, err)
	}

	return &quoteParams{from: from, to: to, amount: amount}, nil
}
