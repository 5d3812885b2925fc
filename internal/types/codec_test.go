package types

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
)

func testBundle() *game.Bundle {
	b := &game.Bundle{Swaps: []game.SwapIntent{
		game.NewSwap(1, 2, uint256.NewInt(500), uint256.NewInt(400)),
		game.NewSwap(2, 0, new(uint256.Int).Lsh(uint256.NewInt(1), 255), nil),
	}}
	b.Tip.SetUint64(7)
	return b
}

func testSnapshot() Snapshot {
	return Snapshot{
		Round:   3,
		Players: 2,
		Balances: [][]*uint256.Int{
			{uint256.NewInt(1), uint256.NewInt(2), uint256.NewInt(3)},
			{uint256.NewInt(4), uint256.NewInt(5), uint256.NewInt(6)},
		},
		Reserves: []*uint256.Int{uint256.NewInt(100), uint256.NewInt(200), uint256.NewInt(300)},
	}
}

// TestBundleCodec verifies a bundle survives encoding, including the empty bundle.
func TestBundleCodec(t *testing.T) {
	for _, b := range []*game.Bundle{testBundle(), {}} {
		got, err := DecodeBundle(EncodeBundle(b))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		if !got.Equal(b) {
			t.Fatalf("decoded %+v, want %+v", got, b)
		}
	}
}

// TestDecodeRejectsGarbage verifies corrupt input fails cleanly.
func TestDecodeRejectsGarbage(t *testing.T) {
	inputs := [][]byte{
		nil,
		{1, 2, 3},
		{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0},
		{0x08, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	}

	for _, in := range inputs {
		if _, err := DecodeBundle(in); !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeBundle(%x) = %v, want ErrMalformed", in, err)
		}

		if _, err := DecodeBuildPlan(in); !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeBuildPlan(%x) = %v, want ErrMalformed", in, err)
		}
	}
}

// TestBundleRequestCodec verifies the snapshot matrix is laid out per player.
func TestBundleRequestCodec(t *testing.T) {
	in := &BundleCall{Self: 1, Builder: 0, State: testSnapshot()}

	got, err := DecodeBundleRequest(EncodeBundleRequest(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Self != 1 || got.Builder != 0 || got.State.Round != 3 || got.State.Players != 2 {
		t.Fatalf("header mismatch: %+v", got)
	}

	if v := got.State.Balances[1][2]; v.Uint64() != 6 {
		t.Errorf("balance[1][2] = %s, want 6", v.Dec())
	}

	if v := got.State.Reserves[2]; v.Uint64() != 300 {
		t.Errorf("reserve[2] = %s, want 300", v.Dec())
	}
}

// TestBuildRequestCodec verifies bundles keep their slots and the builder slot stays nil.
func TestBuildRequestCodec(t *testing.T) {
	in := &BuildCall{
		Self:    0,
		Bundles: []*game.Bundle{nil, testBundle()},
		State:   testSnapshot(),
	}

	got, err := DecodeBuildRequest(EncodeBuildRequest(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got.Bundles) != 2 || got.Bundles[0] != nil {
		t.Fatalf("bundles = %v, want builder slot nil", got.Bundles)
	}

	if !got.Bundles[1].Equal(testBundle()) {
		t.Errorf("bundle 1 = %+v", got.Bundles[1])
	}
}

// TestBuildPlanCodec verifies every action kind and the bid.
func TestBuildPlanCodec(t *testing.T) {
	in := &Plan{Actions: []PlanAction{
		{Kind: ActionKindSell, From: 0, To: 2, Amount: *uint256.NewInt(9)},
		{Kind: ActionKindSettle, Target: 1, Bundle: testBundle()},
		{Kind: ActionKindBuy, From: 2, To: 1, Amount: *uint256.NewInt(11)},
	}}
	in.Bid.SetUint64(42)

	got, err := DecodeBuildPlan(EncodeBuildPlan(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Bid.Uint64() != 42 || len(got.Actions) != 3 {
		t.Fatalf("plan = %+v", got)
	}

	sell := got.Actions[0]
	if sell.Kind != ActionKindSell || sell.To != 2 || sell.Amount.Uint64() != 9 {
		t.Errorf("sell = %+v", sell)
	}

	settle := got.Actions[1]
	if settle.Kind != ActionKindSettle || settle.Target != 1 || !settle.Bundle.Equal(testBundle()) {
		t.Errorf("settle = %+v", settle)
	}

	if got.Actions[2].Kind != ActionKindBuy || got.Actions[2].Amount.Uint64() != 11 {
		t.Errorf("buy = %+v", got.Actions[2])
	}
}

// TestSnapshotRejectsRaggedMatrix verifies balance bytes must match players and assets.
func TestSnapshotRejectsRaggedMatrix(t *testing.T) {
	snap := testSnapshot()
	snap.Balances[1] = snap.Balances[1][:2]

	_, err := DecodeBundleRequest(EncodeBundleRequest(&BundleCall{State: snap}))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
