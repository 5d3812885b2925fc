// Package journal keeps an ordered, in-memory record of every committed
// round and settlement outcome of a game.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/logger"
)

// Key prefixes, one per record kind.
const (
	prefixOutcome byte = 'o'
	prefixRound   byte = 'r'
)

// Journal records outcomes and round summaries under round-ordered keys.
// It is safe for concurrent use.
type Journal struct {
	st *store // st is the Pebble store

	mu   sync.Mutex        // mu protects seqs
	seqs map[uint64]uint32 // seqs is the next outcome sequence per round
}

// Open creates an empty journal.
func Open() (*Journal, error) {
	st, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("open journal store:\n%w", err)
	}

	return &Journal{st: st, seqs: make(map[uint64]uint32)}, nil
}

// Close releases the store.
func (j *Journal) Close() error {
	return j.st.close()
}

// RecordOutcome appends a settlement outcome to its round.
// Write failures are logged; recording never fails the game.
func (j *Journal) RecordOutcome(o game.Outcome) {
	j.mu.Lock()
	seq := j.seqs[o.Round]
	j.seqs[o.Round] = seq + 1
	j.mu.Unlock()

	j.put(recordKey(prefixOutcome, o.Round, seq), newOutcomeRecord(o))
}

// RecordRound stores the summary of a finished round.
func (j *Journal) RecordRound(s game.RoundSummary) {
	j.put(recordKey(prefixRound, s.Round, 0), newRoundRecord(s))

	j.mu.Lock()
	delete(j.seqs, s.Round)
	j.mu.Unlock()
}

// Outcomes returns the outcomes recorded for round, in settlement order.
func (j *Journal) Outcomes(round uint64) ([]game.Outcome, error) {
	var prefix [9]byte
	prefix[0] = prefixOutcome
	binary.BigEndian.PutUint64(prefix[1:], round)

	out := []game.Outcome{}

	err := j.st.iteratePrefix(prefix[:], func(_, value []byte) error {
		var rec outcomeRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}

		o, err := rec.outcome()
		if err != nil {
			return err
		}

		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read outcomes of round %d:\n%w", round, err)
	}

	return out, nil
}

// Rounds returns every recorded round summary, oldest first.
func (j *Journal) Rounds() ([]game.RoundSummary, error) {
	out := []game.RoundSummary{}

	err := j.st.iteratePrefix([]byte{prefixRound}, func(_, value []byte) error {
		var rec roundRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}

		s, err := rec.summary()
		if err != nil {
			return err
		}

		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read rounds:\n%w", err)
	}

	return out, nil
}

// put encodes and stores one record.
func (j *Journal) put(key []byte, rec any) {
	value, err := json.Marshal(rec)
	if err == nil {
		err = j.st.set(key, value)
	}

	if err != nil {
		logger.Error("journal write failed", "key", fmt.Sprintf("%x", key), "error", err)
	}
}

// recordKey builds prefix || round(8B BE) || seq(4B BE).
func recordKey(prefix byte, round uint64, seq uint32) []byte {
	key := make([]byte, 13)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:9], round)
	binary.BigEndian.PutUint32(key[9:], seq)
	return key
}

// swapRecord is the stored form of a swap leg.
type swapRecord struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Amount    string `json:"amount"`
	MinOutput string `json:"min_output"`
}

// outcomeRecord is the stored form of a settlement outcome.
type outcomeRecord struct {
	Round   uint64       `json:"round"`
	Builder int          `json:"builder"`
	Target  int          `json:"target"`
	Success bool         `json:"success"`
	Reason  string       `json:"reason,omitempty"`
	Swaps   []swapRecord `json:"swaps"`
	Tip     string       `json:"tip"`
}

func newOutcomeRecord(o game.Outcome) outcomeRecord {
	rec := outcomeRecord{
		Round:   o.Round,
		Builder: o.Builder,
		Target:  o.Target,
		Success: o.Success,
		Reason:  o.Reason,
		Swaps:   make([]swapRecord, len(o.Bundle.Swaps)),
		Tip:     o.Bundle.Tip.Dec(),
	}

	for i, s := range o.Bundle.Swaps {
		rec.Swaps[i] = swapRecord{
			From:      int(s.From),
			To:        int(s.To),
			Amount:    s.Amount.Dec(),
			MinOutput: s.MinOutput.Dec(),
		}
	}

	return rec
}

func (r *outcomeRecord) outcome() (game.Outcome, error) {
	o := game.Outcome{
		Round:   r.Round,
		Builder: r.Builder,
		Target:  r.Target,
		Success: r.Success,
		Reason:  r.Reason,
	}

	if err := parseDec(&o.Bundle.Tip, r.Tip); err != nil {
		return o, err
	}

	if len(r.Swaps) > 0 {
		o.Bundle.Swaps = make([]game.SwapIntent, len(r.Swaps))
	}

	for i, s := range r.Swaps {
		leg := &o.Bundle.Swaps[i]
		leg.From, leg.To = game.Asset(s.From), game.Asset(s.To)

		if err := parseDec(&leg.Amount, s.Amount); err != nil {
			return o, err
		}
		if err := parseDec(&leg.MinOutput, s.MinOutput); err != nil {
			return o, err
		}
	}

	return o, nil
}

// roundRecord is the stored form of a round summary.
type roundRecord struct {
	Round   uint64 `json:"round"`
	Builder int    `json:"builder"`
	Bid     string `json:"bid"`
	Empty   bool   `json:"empty"`
	Failure string `json:"failure,omitempty"`
	Winner  int    `json:"winner"`
}

func newRoundRecord(s game.RoundSummary) roundRecord {
	return roundRecord{
		Round:   s.Round,
		Builder: s.Builder,
		Bid:     s.Bid.Dec(),
		Empty:   s.Empty,
		Failure: s.Failure,
		Winner:  s.Winner,
	}
}

func (r *roundRecord) summary() (game.RoundSummary, error) {
	s := game.RoundSummary{
		Round:   r.Round,
		Builder: r.Builder,
		Empty:   r.Empty,
		Failure: r.Failure,
		Winner:  r.Winner,
	}

	if err := parseDec(&s.Bid, r.Bid); err != nil {
		return s, err
	}

	return s, nil
}

// parseDec decodes a decimal amount into dst.
func parseDec(dst *uint256.Int, s string) error {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}

	dst.Set(v)
	return nil
}
