package podvm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/klauspost/compress/zstd"

	"Nottingham/internal/game"
	"Nottingham/internal/types"
)

// Function indices of the test program. Imports come first.
const (
	fnGas = iota
	fnWriteOutput
	fnSettle
)

// testProgram assembles a module whose memory starts with bid (32 bytes)
// followed by payload:
//
//	create_bundle: write_output(32, len(payload))
//	build_block:   settle(1, 32, len(payload)); write_output(0, 32)
//	burn:          loop { gas(1000) }
//	spin:          loop {}
func testProgram(bid uint64, payload []byte) []byte {
	word := uint256.NewInt(bid).Bytes32()
	data := append(word[:], payload...)
	n := int64(len(payload))

	typeSec := section(1, vec(
		[]byte{0x60, 0x01, 0x7f, 0x00},                   // (i32)
		[]byte{0x60, 0x02, 0x7f, 0x7f, 0x00},             // (i32, i32)
		[]byte{0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x01, 0x7f}, // (i32, i32, i32) -> i32
		[]byte{0x60, 0x00, 0x00},                         // ()
	))

	imports := section(2, vec(
		cat(name("env"), name("gas"), []byte{0x00, 0x00}),
		cat(name("env"), name("write_output"), []byte{0x00, 0x01}),
		cat(name("env"), name("settle"), []byte{0x00, 0x02}),
	))

	funcs := section(3, vec([]byte{0x03}, []byte{0x03}, []byte{0x03}, []byte{0x03}))
	memory := section(5, vec([]byte{0x00, 0x01}))

	exports := section(7, vec(
		cat(name("memory"), []byte{0x02, 0x00}),
		cat(name(EntryCreateBundle), []byte{0x00, 0x03}),
		cat(name(EntryBuildBlock), []byte{0x00, 0x04}),
		cat(name("burn"), []byte{0x00, 0x05}),
		cat(name("spin"), []byte{0x00, 0x06}),
	))

	createBundle := cat(i32(32), i32(n), call(fnWriteOutput))
	buildBlock := cat(i32(1), i32(32), i32(n), call(fnSettle), []byte{0x1a}, i32(0), i32(32), call(fnWriteOutput))
	burn := cat([]byte{0x03, 0x40}, i32(1000), call(fnGas), []byte{0x0c, 0x00, 0x0b})
	spin := []byte{0x03, 0x40, 0x0c, 0x00, 0x0b}

	code := section(10, vec(body(createBundle), body(buildBlock), body(burn), body(spin)))
	dataSec := section(11, vec(cat([]byte{0x00}, i32(0), []byte{0x0b}, uleb(uint64(len(data))), data)))

	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	return cat(header, typeSec, imports, funcs, memory, exports, code, dataSec)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func i32(v int64) []byte { return cat([]byte{0x41}, sleb(v)) }

func call(idx uint64) []byte { return cat([]byte{0x10}, uleb(idx)) }

func name(s string) []byte { return cat(uleb(uint64(len(s))), []byte(s)) }

func section(id byte, content []byte) []byte {
	return cat([]byte{id}, uleb(uint64(len(content))), content)
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint64(len(items))), cat(items...))
}

// body wraps instructions into a function body without locals.
func body(instrs []byte) []byte {
	b := cat([]byte{0x00}, instrs, []byte{0x0b})
	return cat(uleb(uint64(len(b))), b)
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()

	pool, err := New(16)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func testBundle() *game.Bundle {
	b := &game.Bundle{Swaps: []game.SwapIntent{game.NewSwap(1, 2, uint256.NewInt(300), uint256.NewInt(1))}}
	b.Tip.SetUint64(2)
	return b
}

// TestPool_LoadAndExecute tests loading a program and reading its output.
func TestPool_LoadAndExecute(t *testing.T) {
	pool := newTestPool(t)

	payload := types.EncodeBundle(testBundle())
	id, err := pool.Load(testProgram(5, payload))
	if err != nil {
		t.Fatalf("failed to load module: %v", err)
	}

	output, _, err := pool.Execute(context.Background(), id, EntryCreateBundle, nil, Call{Gas: 10_000})
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}

	got, err := types.DecodeBundle(output)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	if !got.Equal(testBundle()) {
		t.Errorf("output bundle = %+v", got)
	}
}

// TestPool_CompressedProgram tests that zstd artifacts load to the same module.
func TestPool_CompressedProgram(t *testing.T) {
	pool := newTestPool(t)
	raw := testProgram(1, nil)

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	compressed := encoder.EncodeAll(raw, nil)
	encoder.Close()

	rawID, err := pool.Load(raw)
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}

	zID, err := pool.Load(compressed)
	if err != nil {
		t.Fatalf("load compressed: %v", err)
	}

	if rawID != zID {
		t.Error("compressed program hashed differently")
	}
}

// TestPool_RejectsBadPrograms tests garbage and missing entry points.
func TestPool_RejectsBadPrograms(t *testing.T) {
	pool := newTestPool(t)

	if _, err := pool.Load([]byte("not wasm")); err == nil {
		t.Error("garbage compiled")
	}

	memOnly := cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(5, vec([]byte{0x00, 0x01})),
		section(7, vec(cat(name("memory"), []byte{0x02, 0x00}))),
	)

	if _, err := pool.Load(memOnly); !errors.Is(err, ErrMissingExport) {
		t.Errorf("err = %v, want ErrMissingExport", err)
	}
}

// TestPool_GasExhausted tests that execution stops when gas is exhausted.
func TestPool_GasExhausted(t *testing.T) {
	pool := newTestPool(t)

	id, err := pool.Load(testProgram(0, nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	_, used, err := pool.Execute(context.Background(), id, "burn", nil, Call{Gas: 10_500})
	if !errors.Is(err, game.ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}

	if used != 10_500 {
		t.Errorf("used = %d, want the full limit", used)
	}
}

// TestPool_ContextAbortsExecution tests that an unmetered loop stops at the deadline.
func TestPool_ContextAbortsExecution(t *testing.T) {
	pool := newTestPool(t)

	id, err := pool.Load(testProgram(0, nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err = pool.Execute(ctx, id, "spin", nil, Call{Gas: 1})
	if !errors.Is(err, game.ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("spin ran for %v", elapsed)
	}
}

// TestPool_OutputCap tests that oversized output aborts the call.
func TestPool_OutputCap(t *testing.T) {
	pool := newTestPool(t)

	id, err := pool.Load(testProgram(0, make([]byte, 200)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	_, _, err = pool.Execute(context.Background(), id, EntryCreateBundle, nil, Call{Gas: 1, MaxOutput: 100})
	if !errors.Is(err, game.ErrResponseTooLarge) {
		t.Fatalf("err = %v, want ErrResponseTooLarge", err)
	}
}

// TestPool_ModuleNotFound tests that executing an unknown module returns an error.
func TestPool_ModuleNotFound(t *testing.T) {
	pool := newTestPool(t)

	var unknownID [32]byte

	_, _, err := pool.Execute(context.Background(), unknownID, EntryCreateBundle, nil, Call{})
	if err != ErrModuleNotFound {
		t.Errorf("expected ErrModuleNotFound, got %v", err)
	}
}
