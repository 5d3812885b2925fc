package settlement

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"Nottingham/internal/game"
	"Nottingham/internal/state"
)

// commitDomain separates settlement commitments from other blake3 uses.
const commitDomain = "nottingham-settlement"

// Commit returns the commitment of bundle in round: a blake3 hash over a
// canonical encoding of the bundle bound to the round number.
// A nil bundle commits the same as an empty one.
func Commit(round uint64, bundle *game.Bundle) state.Hash {
	b := bundle.Clone()

	h := blake3.New()
	h.Write([]byte(commitDomain))
	h.Write(Encode(round, b))

	var out state.Hash
	h.Sum(out[:0])

	return out
}

// Encode returns the canonical byte layout of a bundle in round:
//
//	round u64 | legs u32 | legs × (from i64 | to i64 | amount 32B | minOutput 32B) | tip 32B
//
// Integers are big-endian. Assets keep their full width so distinct
// indices never share an encoding.
func Encode(round uint64, b *game.Bundle) []byte {
	buf := make([]byte, 0, 8+4+len(b.Swaps)*80+32)
	buf = binary.BigEndian.AppendUint64(buf, round)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.Swaps)))

	for _, s := range b.Swaps {
		buf = binary.BigEndian.AppendUint64(buf, uint64(int64(s.From)))
		buf = binary.BigEndian.AppendUint64(buf, uint64(int64(s.To)))
		buf = append(buf, s.Amount.PaddedBytes(32)...)
		buf = append(buf, s.MinOutput.PaddedBytes(32)...)
	}

	return append(buf, b.Tip.PaddedBytes(32)...)
}
