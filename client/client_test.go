package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"Nottingham/internal/api"
	"Nottingham/internal/engine"
	"Nottingham/internal/game"
	"Nottingham/internal/identity"
	"Nottingham/internal/journal"
	"Nottingham/internal/strategy"
)

// newTestArena plays rounds of a greedy two-player game and serves it.
func newTestArena(t *testing.T, rounds int) (*Client, *engine.Engine) {
	t.Helper()

	codes := [][]byte{[]byte("client-test-0"), []byte("client-test-1")}
	players := make([]game.Player, len(codes))
	for i := range players {
		p, err := strategy.Local(strategy.NameGreedy)
		if err != nil {
			t.Fatalf("strategy: %v", err)
		}
		players[i] = p
	}

	as, err := identity.Mine(codes)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	reg, err := identity.FromAssignments(codes, as)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	j, err := journal.Open()
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	e, err := engine.New(game.DefaultConfig(len(codes)), reg, players, j)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	for i := 0; i < rounds; i++ {
		if _, err := e.PlayRound(context.Background()); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
	}

	srv := httptest.NewServer(api.New("", e, j).Handler())
	t.Cleanup(srv.Close)

	return NewClient(strings.TrimPrefix(srv.URL, "http://")), e
}

func equalAmounts(a, b []*uint256.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

func TestClientStatus(t *testing.T) {
	c, _ := newTestArena(t, 3)

	if err := c.Health(); err != nil {
		t.Fatalf("health: %v", err)
	}

	st, err := c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	if st.Round != 3 || st.Players != 2 || st.Ended {
		t.Errorf("status = %+v", st)
	}
}

func TestClientHandles(t *testing.T) {
	c, e := newTestArena(t, 0)

	handles, err := c.Handles()
	if err != nil {
		t.Fatalf("handles: %v", err)
	}

	for i, h := range e.Handles() {
		if handles[i] != h.String() {
			t.Errorf("handle %d = %s, want %s", i, handles[i], h)
		}
	}
}

func TestClientState(t *testing.T) {
	c, e := newTestArena(t, 2)

	reserves, err := c.Reserves()
	if err != nil {
		t.Fatalf("reserves: %v", err)
	}

	for i, r := range e.Reserves() {
		if !reserves[i].Eq(r) {
			t.Errorf("reserve %d = %s, want %s", i, reserves[i].Dec(), r.Dec())
		}
	}

	prices, err := c.Prices()
	if err != nil {
		t.Fatalf("prices: %v", err)
	}

	for a := range prices {
		want, err := e.SpotPrice(game.Asset(a), game.Currency)
		if err != nil {
			t.Fatalf("spot price: %v", err)
		}

		if !prices[a].Eq(want) {
			t.Errorf("price %d = %s, want %s", a, prices[a].Dec(), want.Dec())
		}
	}

	if len(prices) != len(reserves) {
		t.Errorf("%d prices for %d assets", len(prices), len(reserves))
	}

	for p := 0; p < 2; p++ {
		got, err := c.Balances(p)
		if err != nil {
			t.Fatalf("balances: %v", err)
		}

		want, _ := e.Balances(p)
		if !equalAmounts(got, want) {
			t.Errorf("player %d balances differ", p)
		}
	}

	scores, err := c.Scores()
	if err != nil {
		t.Fatalf("scores: %v", err)
	}

	if !equalAmounts(scores, e.Scores()) {
		t.Error("scores differ")
	}
}

func TestClientQuotes(t *testing.T) {
	c, e := newTestArena(t, 1)
	amount := uint256.NewInt(1_000_000)

	got, err := c.QuoteSell(0, 1, amount)
	if err != nil {
		t.Fatalf("quote sell: %v", err)
	}

	want, _ := e.QuoteSell(0, 1, amount)
	if !got.Eq(want) {
		t.Errorf("sell = %s, want %s", got.Dec(), want.Dec())
	}

	got, err = c.QuoteBuy(1, 0, amount)
	if err != nil {
		t.Fatalf("quote buy: %v", err)
	}

	want, _ = e.QuoteBuy(1, 0, amount)
	if !got.Eq(want) {
		t.Errorf("buy = %s, want %s", got.Dec(), want.Dec())
	}
}

func TestClientHistory(t *testing.T) {
	c, _ := newTestArena(t, 4)

	rounds, err := c.Rounds()
	if err != nil {
		t.Fatalf("rounds: %v", err)
	}

	if len(rounds) != 4 {
		t.Fatalf("expected 4 rounds, got %d", len(rounds))
	}

	for i, r := range rounds {
		if r.Round != uint64(i+1) {
			t.Errorf("round %d numbered %d", i+1, r.Round)
		}

		outcomes, err := c.Outcomes(r.Round)
		if err != nil {
			t.Fatalf("outcomes: %v", err)
		}

		if r.Empty && len(outcomes) != 0 {
			t.Errorf("empty round %d has %d outcomes", r.Round, len(outcomes))
		}

		for _, o := range outcomes {
			if o.Builder != r.Builder || o.Round != r.Round {
				t.Errorf("outcome %+v does not belong to round %+v", o, r)
			}
		}
	}
}

func TestClientErrors(t *testing.T) {
	c, _ := newTestArena(t, 0)

	_, err := c.Balances(7)

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Message == "" {
		t.Errorf("err = %v, want a 404 StatusError", err)
	}

	if _, err := c.QuoteSell(0, 5, uint256.NewInt(1)); !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want a 400 StatusError", err)
	}
}
