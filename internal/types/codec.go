package types

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/holiman/uint256"

	"Nottingham/internal/game"
)

// ErrMalformed is returned when a message cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// wordSize is the encoded width of every amount.
const wordSize = 32

// Snapshot is the game state shipped with a request to an out-of-process player.
type Snapshot struct {
	Round    uint64           // Round is the number of completed rounds
	Players  int              // Players is the number of identities
	Balances [][]*uint256.Int // Balances is indexed by player then asset
	Reserves []*uint256.Int   // Reserves is the market reserve vector
}

// BundleCall asks a player for its bundle.
type BundleCall struct {
	Self    int      // Self is the player being asked
	Builder int      // Builder is the round's builder
	State   Snapshot // State is the state at request time
}

// BuildCall asks the builder for its build plan.
type BuildCall struct {
	Self    int            // Self is the builder
	Bundles []*game.Bundle // Bundles is indexed by player, nil for the builder
	State   Snapshot       // State is the state when the build starts
}

// PlanAction is one step of a build plan.
type PlanAction struct {
	Kind   ActionKind   // Kind selects Settle, Sell or Buy
	Target int          // Target is the settled player, Settle only
	From   game.Asset   // From is the asset given, Sell and Buy only
	To     game.Asset   // To is the asset received, Sell and Buy only
	Amount uint256.Int  // Amount is the input of a Sell or the output of a Buy
	Bundle *game.Bundle // Bundle is the settled content, Settle only
}

// Plan is a builder's answer: the actions to replay and the bid.
type Plan struct {
	Bid     uint256.Int  // Bid is the amount the builder burns
	Actions []PlanAction // Actions run in order against the builder surface
}

// Capture reads a snapshot through v.
func Capture(v game.View) Snapshot {
	s := Snapshot{
		Round:    v.Round(),
		Players:  v.PlayerCount(),
		Reserves: v.MarketState(),
		Balances: make([][]*uint256.Int, v.PlayerCount()),
	}

	for p := range s.Balances {
		row := make([]*uint256.Int, v.AssetCount())
		for a := range row {
			bal, err := v.BalanceOf(p, game.Asset(a))
			if err != nil {
				bal = new(uint256.Int)
			}
			row[a] = bal
		}
		s.Balances[p] = row
	}

	return s
}

// EncodeBundle serializes a bundle as a root table.
func EncodeBundle(b *game.Bundle) []byte {
	builder := flatbuffers.NewBuilder(256)
	builder.Finish(buildBundle(builder, b))
	return builder.FinishedBytes()
}

// DecodeBundle parses a bundle. Corrupt input fails with ErrMalformed.
func DecodeBundle(data []byte) (b *game.Bundle, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d byte bundle", ErrMalformed, len(data))
	}

	defer recoverMalformed(&err)

	return readBundle(GetRootAsBundle(data, 0))
}

// EncodeBundleRequest serializes a bundle request.
func EncodeBundleRequest(c *BundleCall) []byte {
	builder := flatbuffers.NewBuilder(1024)

	balances := builder.CreateByteVector(packMatrix(c.State.Balances))
	reserves := builder.CreateByteVector(packWords(c.State.Reserves))

	BundleRequestStart(builder)
	BundleRequestAddSelf(builder, uint32(c.Self))
	BundleRequestAddBuilder(builder, uint32(c.Builder))
	BundleRequestAddRound(builder, c.State.Round)
	BundleRequestAddPlayers(builder, uint32(c.State.Players))
	BundleRequestAddBalances(builder, balances)
	BundleRequestAddReserves(builder, reserves)
	builder.Finish(BundleRequestEnd(builder))

	return builder.FinishedBytes()
}

// DecodeBundleRequest parses a bundle request.
func DecodeBundleRequest(data []byte) (c *BundleCall, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d byte request", ErrMalformed, len(data))
	}

	defer recoverMalformed(&err)

	req := GetRootAsBundleRequest(data, 0)

	snap, err := readSnapshot(req.Round(), req.Players(), req.BalancesBytes(), req.ReservesBytes())
	if err != nil {
		return nil, err
	}

	return &BundleCall{Self: int(req.Self()), Builder: int(req.Builder()), State: snap}, nil
}

// EncodeBuildRequest serializes a build request.
func EncodeBuildRequest(c *BuildCall) []byte {
	builder := flatbuffers.NewBuilder(4096)

	offsets := make([]flatbuffers.UOffsetT, len(c.Bundles))
	for i, b := range c.Bundles {
		offsets[i] = buildBundle(builder, b)
	}

	BuildRequestStartBundlesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	bundles := builder.EndVector(len(offsets))

	balances := builder.CreateByteVector(packMatrix(c.State.Balances))
	reserves := builder.CreateByteVector(packWords(c.State.Reserves))

	BuildRequestStart(builder)
	BuildRequestAddSelf(builder, uint32(c.Self))
	BuildRequestAddRound(builder, c.State.Round)
	BuildRequestAddPlayers(builder, uint32(c.State.Players))
	BuildRequestAddBundles(builder, bundles)
	BuildRequestAddBalances(builder, balances)
	BuildRequestAddReserves(builder, reserves)
	builder.Finish(BuildRequestEnd(builder))

	return builder.FinishedBytes()
}

// DecodeBuildRequest parses a build request. The builder's own slot decodes
// to nil.
func DecodeBuildRequest(data []byte) (c *BuildCall, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d byte request", ErrMalformed, len(data))
	}

	defer recoverMalformed(&err)

	req := GetRootAsBuildRequest(data, 0)

	snap, err := readSnapshot(req.Round(), req.Players(), req.BalancesBytes(), req.ReservesBytes())
	if err != nil {
		return nil, err
	}

	if err := checkLen(req.BundlesLength(), data); err != nil {
		return nil, err
	}

	c = &BuildCall{Self: int(req.Self()), State: snap, Bundles: make([]*game.Bundle, req.BundlesLength())}

	var fb Bundle
	for i := range c.Bundles {
		if i == c.Self || !req.Bundles(&fb, i) {
			continue
		}

		if c.Bundles[i], err = readBundle(&fb); err != nil {
			return nil, fmt.Errorf("bundle %d: %w", i, err)
		}
	}

	return c, nil
}

// EncodeBuildPlan serializes a build plan.
func EncodeBuildPlan(p *Plan) []byte {
	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(p.Actions))
	for i := range p.Actions {
		offsets[i] = buildAction(builder, &p.Actions[i])
	}

	BuildPlanStartActionsVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	actions := builder.EndVector(len(offsets))

	bid := builder.CreateByteVector(word(&p.Bid))

	BuildPlanStart(builder)
	BuildPlanAddBid(builder, bid)
	BuildPlanAddActions(builder, actions)
	builder.Finish(BuildPlanEnd(builder))

	return builder.FinishedBytes()
}

// DecodeBuildPlan parses a build plan.
func DecodeBuildPlan(data []byte) (p *Plan, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d byte plan", ErrMalformed, len(data))
	}

	defer recoverMalformed(&err)

	fb := GetRootAsBuildPlan(data, 0)
	if err := checkLen(fb.ActionsLength(), data); err != nil {
		return nil, err
	}

	p = &Plan{Actions: make([]PlanAction, fb.ActionsLength())}
	if err := readWord(&p.Bid, fb.BidBytes()); err != nil {
		return nil, fmt.Errorf("bid: %w", err)
	}

	var act Action
	for i := range p.Actions {
		fb.Actions(&act, i)

		if err := readAction(&p.Actions[i], &act); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}

	return p, nil
}

// buildBundle writes b into builder and returns its offset.
func buildBundle(builder *flatbuffers.Builder, b *game.Bundle) flatbuffers.UOffsetT {
	b = b.Clone()

	swaps := make([]flatbuffers.UOffsetT, len(b.Swaps))
	for i := range b.Swaps {
		s := &b.Swaps[i]
		amount := builder.CreateByteVector(word(&s.Amount))
		minOut := builder.CreateByteVector(word(&s.MinOutput))

		SwapIntentStart(builder)
		SwapIntentAddFrom(builder, uint32(s.From))
		SwapIntentAddTo(builder, uint32(s.To))
		SwapIntentAddAmount(builder, amount)
		SwapIntentAddMinOutput(builder, minOut)
		swaps[i] = SwapIntentEnd(builder)
	}

	BundleStartSwapsVector(builder, len(swaps))
	for i := len(swaps) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(swaps[i])
	}
	swapsVec := builder.EndVector(len(swaps))

	tip := builder.CreateByteVector(word(&b.Tip))

	BundleStart(builder)
	BundleAddSwaps(builder, swapsVec)
	BundleAddTip(builder, tip)

	return BundleEnd(builder)
}

// readBundle converts a FlatBuffers bundle.
func readBundle(fb *Bundle) (*game.Bundle, error) {
	b := &game.Bundle{}

	if err := readWord(&b.Tip, fb.TipBytes()); err != nil {
		return nil, fmt.Errorf("tip: %w", err)
	}

	n := fb.SwapsLength()
	if err := checkLen(n, fb._tab.Bytes); err != nil {
		return nil, err
	}
	if n > 0 {
		b.Swaps = make([]game.SwapIntent, n)
	}

	var fs SwapIntent
	for i := range b.Swaps {
		fb.Swaps(&fs, i)

		s := &b.Swaps[i]
		s.From, s.To = game.Asset(fs.From()), game.Asset(fs.To())

		if err := readWord(&s.Amount, fs.AmountBytes()); err != nil {
			return nil, fmt.Errorf("swap %d amount: %w", i, err)
		}
		if err := readWord(&s.MinOutput, fs.MinOutputBytes()); err != nil {
			return nil, fmt.Errorf("swap %d min output: %w", i, err)
		}
	}

	return b, nil
}

// buildAction writes one plan action.
func buildAction(builder *flatbuffers.Builder, a *PlanAction) flatbuffers.UOffsetT {
	var bundle flatbuffers.UOffsetT
	if a.Kind == ActionKindSettle {
		bundle = buildBundle(builder, a.Bundle)
	}

	amount := builder.CreateByteVector(word(&a.Amount))

	ActionStart(builder)
	ActionAddKind(builder, a.Kind)
	ActionAddTarget(builder, uint32(a.Target))
	ActionAddFrom(builder, uint32(a.From))
	ActionAddTo(builder, uint32(a.To))
	ActionAddAmount(builder, amount)
	if a.Kind == ActionKindSettle {
		ActionAddBundle(builder, bundle)
	}

	return ActionEnd(builder)
}

// readAction converts a FlatBuffers action.
func readAction(out *PlanAction, fb *Action) error {
	out.Kind = fb.Kind()
	out.Target = int(fb.Target())
	out.From, out.To = game.Asset(fb.From()), game.Asset(fb.To())

	if err := readWord(&out.Amount, fb.AmountBytes()); err != nil {
		return fmt.Errorf("amount: %w", err)
	}

	switch out.Kind {
	case ActionKindSettle:
		fbBundle := fb.Bundle(nil)
		if fbBundle == nil {
			return fmt.Errorf("%w: settle without bundle", ErrMalformed)
		}

		b, err := readBundle(fbBundle)
		if err != nil {
			return err
		}
		out.Bundle = b
	case ActionKindSell, ActionKindBuy:
	default:
		return fmt.Errorf("%w: unknown action %s", ErrMalformed, out.Kind)
	}

	return nil
}

// readSnapshot unpacks the flat balance matrix and reserve vector.
func readSnapshot(round uint64, players uint32, balances, reserves []byte) (Snapshot, error) {
	if len(reserves)%wordSize != 0 {
		return Snapshot{}, fmt.Errorf("%w: reserves of %d bytes", ErrMalformed, len(reserves))
	}

	assets := len(reserves) / wordSize
	if players == 0 || len(balances) != int(players)*assets*wordSize {
		return Snapshot{}, fmt.Errorf("%w: %d balance bytes for %d players and %d assets", ErrMalformed, len(balances), players, assets)
	}

	s := Snapshot{
		Round:    round,
		Players:  int(players),
		Reserves: unpackWords(reserves),
		Balances: make([][]*uint256.Int, players),
	}

	row := assets * wordSize
	for p := range s.Balances {
		s.Balances[p] = unpackWords(balances[p*row : (p+1)*row])
	}

	return s, nil
}

// word encodes v as a 32-byte big-endian word.
func word(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

// readWord decodes a big-endian amount of at most 32 bytes. Absent means zero.
func readWord(dst *uint256.Int, b []byte) error {
	if len(b) > wordSize {
		return fmt.Errorf("%w: %d byte amount", ErrMalformed, len(b))
	}

	dst.SetBytes(b)
	return nil
}

// packWords concatenates 32-byte words.
func packWords(vs []*uint256.Int) []byte {
	out := make([]byte, 0, len(vs)*wordSize)
	for _, v := range vs {
		if v == nil {
			v = new(uint256.Int)
		}
		out = append(out, word(v)...)
	}
	return out
}

// packMatrix concatenates the rows of m.
func packMatrix(m [][]*uint256.Int) []byte {
	var out []byte
	for _, row := range m {
		out = append(out, packWords(row)...)
	}
	return out
}

// unpackWords splits b into 32-byte words.
func unpackWords(b []byte) []*uint256.Int {
	out := make([]*uint256.Int, len(b)/wordSize)
	for i := range out {
		out[i] = new(uint256.Int).SetBytes(b[i*wordSize : (i+1)*wordSize])
	}
	return out
}

// checkLen rejects vector lengths the buffer cannot hold.
func checkLen(n int, buf []byte) error {
	if n < 0 || n > len(buf)/4 {
		return fmt.Errorf("%w: vector of %d entries in %d bytes", ErrMalformed, n, len(buf))
	}
	return nil
}

// recoverMalformed turns a FlatBuffers bounds panic into ErrMalformed.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}
