// Package api serves the read-only HTTP view of a running arena game.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/holiman/uint256"

	"Nottingham/internal/engine"
	"Nottingham/internal/game"
	"Nottingham/internal/identity"
	"Nottingham/internal/logger"
)

// GameReader exposes the committed state of a game.
// *engine.Engine satisfies it.
type GameReader interface {
	Status() engine.Status
	Handles() []identity.Handle
	Reserves() []*uint256.Int
	Balances(player int) ([]*uint256.Int, error)
	Scores() []*uint256.Int
	SpotPrice(from, to game.Asset) (*uint256.Int, error)
	QuoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error)
	QuoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error)
}

// History exposes recorded rounds and settlements.
// *journal.Journal satisfies it.
type History interface {
	Rounds() ([]game.RoundSummary, error)
	Outcomes(round uint64) ([]game.Outcome, error)
}

// Server is the HTTP API server.
type Server struct {
	addr    string       // addr is the HTTP listen address
	reader  GameReader   // reader provides the committed game state
	history History      // history provides the journal, may be nil
	server  *http.Server // server is the underlying HTTP server
	bound   string       // bound is the listener address once started
}

// New creates a new HTTP API server. history may be nil.
func New(addr string, reader GameReader, history History) *Server {
	return &Server{
		addr:    addr,
		reader:  reader,
		history: history,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /players", s.handlePlayers)
	mux.HandleFunc("GET /market", s.handleMarket)
	mux.HandleFunc("GET /balances/{player}", s.handleBalances)
	mux.HandleFunc("GET /scores", s.handleScores)
	mux.HandleFunc("GET /quote/sell", s.handleQuoteSell)
	mux.HandleFunc("GET /quote/buy", s.handleQuoteBuy)
	mux.HandleFunc("GET /rounds", s.handleRounds)
	mux.HandleFunc("GET /rounds/{round}/outcomes", s.handleOutcomes)

	return mux
}

// Start binds the listener and serves in a goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.bound = ln.Addr().String()
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.bound)

		if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	return s.bound
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.reader.Status()

	writeJSON(w, http.StatusOK, StatusResponse{
		Round:   st.Round,
		Ended:   st.Ended,
		Winner:  st.Winner,
		Players: st.Players,
	})
}

// handlePlayers handles GET /players requests.
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	handles := s.reader.Handles()

	out := make([]PlayerResponse, len(handles))
	for i, h := range handles {
		out[i] = PlayerResponse{Index: i, Handle: h.String()}
	}

	writeJSON(w, http.StatusOK, out)
}

// handleMarket handles GET /market requests.
// Prices are the spot price of every asset in currency.
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	reserves := s.reader.Reserves()

	prices := make([]*uint256.Int, len(reserves))
	for a := range reserves {
		p, err := s.reader.SpotPrice(game.Asset(a), game.Currency)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		prices[a] = p
	}

	writeJSON(w, http.StatusOK, MarketResponse{Reserves: decimals(reserves), Prices: decimals(prices)})
}

// handleBalances handles GET /balances/{player} requests.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	player, err := parsePlayer(r.PathValue("player"), s.reader.Status().Players)
	if err != nil {
		writeFailure(w, err)
		return
	}

	balances, err := s.reader.Balances(player)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalancesResponse{Player: player, Balances: decimals(balances)})
}

// handleScores handles GET /scores requests.
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ScoresResponse{Scores: decimals(s.reader.Scores())})
}

// handleQuoteSell handles GET /quote/sell?from=&to=&amount= requests.
func (s *Server) handleQuoteSell(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuote(r, "amount", len(s.reader.Reserves()))
	if err != nil {
		writeFailure(w, err)
		return
	}

	output, err := s.reader.QuoteSell(q.from, q.to, q.amount)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		From:   int(q.from),
		To:     int(q.to),
		Input:  q.amount.Dec(),
		Output: output.Dec(),
	})
}

// handleQuoteBuy handles GET /quote/buy?from=&to=&output= requests.
func (s *Server) handleQuoteBuy(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuote(r, "output", len(s.reader.Reserves()))
	if err != nil {
		writeFailure(w, err)
		return
	}

	input, err := s.reader.QuoteBuy(q.from, q.to, q.amount)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		From:   int(q.from),
		To:     int(q.to),
		Input:  input.Dec(),
		Output: q.amount.Dec(),
	})
}

// handleRounds handles GET /rounds requests.
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not available")
		return
	}

	rounds, err := s.history.Rounds()
	if err != nil {
		logger.Warn("read rounds failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history unreadable")
		return
	}

	out := make([]RoundResponse, len(rounds))
	for i, rs := range rounds {
		out[i] = newRoundResponse(rs)
	}

	writeJSON(w, http.StatusOK, out)
}

// handleOutcomes handles GET /rounds/{round}/outcomes requests.
func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not available")
		return
	}

	round, err := parseRound(r.PathValue("round"), s.reader.Status().Round)
	if err != nil {
		writeFailure(w, err)
		return
	}

	outcomes, err := s.history.Outcomes(round)
	if err != nil {
		logger.Warn("read outcomes failed", "round", round, "error", err)
		writeError(w, http.StatusInternalServerError, "history unreadable")
		return
	}

	out := make([]OutcomeResponse, len(outcomes))
	for i, o := range outcomes {
		out[i] = newOutcomeResponse(o)
	}

	writeJSON(w, http.StatusOK, out)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeFailure maps a request or game error to its status code.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errNotFound) || errors.Is(err, game.ErrInvalidIdentity) {
		status = http.StatusNotFound
	}

	writeError(w, status, err.Error())
}

func decimals(vs []*uint256.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Dec()
	}
	return out
}
