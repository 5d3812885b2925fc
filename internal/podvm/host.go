package podvm

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tetratelabs/wazero/api"

	"Nottingham/internal/game"
	"Nottingham/internal/types"
)

// Status codes returned by the game imports.
const (
	StatusOK        int32 = 0 // StatusOK means the call succeeded
	StatusRejected  int32 = 1 // StatusRejected means the game refused the call
	StatusDenied    int32 = 2 // StatusDenied means the capability is not held
	StatusMalformed int32 = 3 // StatusMalformed means a pointer or payload was invalid
	StatusFailed    int32 = 4 // StatusFailed means a settled bundle's legs failed
)

// wordSize is the width of every amount in guest memory.
const wordSize = 32

// Call binds one execution to its budget and the game capabilities it may use.
type Call struct {
	Gas       uint64       // Gas is the limit for the gas import
	MaxOutput int          // MaxOutput caps write_output, zero means no cap
	View      game.View    // View answers read imports
	Builder   game.Builder // Builder answers privileged imports, nil outside builds
}

// execContext holds the execution state for a single WASM invocation.
type execContext struct {
	input  []byte         // input is the FlatBuffers-encoded request
	output []byte         // output is the guest's answer
	memory api.Memory     // memory is the WASM linear memory
	call   Call           // call carries limits and capabilities
	meter  *game.GasMeter // meter tracks the gas import
	fault  error          // fault is the reason execution was aborted
}

type execKey struct{}

func withExecContext(ctx context.Context, execCtx *execContext) context.Context {
	return context.WithValue(ctx, execKey{}, execCtx)
}

// execFrom recovers the invocation a host call belongs to.
func execFrom(ctx context.Context) *execContext {
	execCtx, _ := ctx.Value(execKey{}).(*execContext)
	if execCtx == nil {
		panic("host call outside an execution")
	}
	return execCtx
}

// abort stops the guest with err.
func (c *execContext) abort(err error) {
	c.fault = err
	panic(err)
}

// buildHostModule creates the "env" module with host functions.
// Every function finds its invocation through the call context.
func (p *Pool) buildHostModule(ctx context.Context) (api.Module, error) {
	return p.runtime.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, cost uint32) {
			hostGas(execFrom(ctx), cost)
		}).
		Export("gas").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			return hostInputLen(execFrom(ctx))
		}).
		Export("input_len").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, ptr uint32) {
			hostReadInput(execFrom(ctx), ptr)
		}).
		Export("read_input").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, ptr, length uint32) {
			hostWriteOutput(execFrom(ctx), ptr, length)
		}).
		Export("write_output").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, player, asset, outPtr uint32) int32 {
			return hostBalanceOf(execFrom(ctx), player, asset, outPtr)
		}).
		Export("balance_of").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, from, to, amountPtr, outPtr uint32) int32 {
			return hostTrade(execFrom(ctx), quoteSell, from, to, amountPtr, outPtr)
		}).
		Export("quote_sell").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, from, to, amountPtr, outPtr uint32) int32 {
			return hostTrade(execFrom(ctx), quoteBuy, from, to, amountPtr, outPtr)
		}).
		Export("quote_buy").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, from, to, amountPtr, outPtr uint32) int32 {
			return hostTrade(execFrom(ctx), sell, from, to, amountPtr, outPtr)
		}).
		Export("sell").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, from, to, amountPtr, outPtr uint32) int32 {
			return hostTrade(execFrom(ctx), buy, from, to, amountPtr, outPtr)
		}).
		Export("buy").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, target, ptr, length uint32) int32 {
			return hostSettle(execFrom(ctx), target, ptr, length)
		}).
		Export("settle").
		Instantiate(ctx)
}

// hostGas handles gas metering.
// Aborts the guest once the limit is exceeded.
func hostGas(execCtx *execContext, cost uint32) {
	if err := execCtx.meter.Consume(uint64(cost)); err != nil {
		execCtx.abort(err)
	}
}

// hostInputLen returns the length of the input buffer.
func hostInputLen(execCtx *execContext) uint32 {
	return uint32(len(execCtx.input))
}

// hostReadInput copies the input buffer into WASM memory at the given pointer.
func hostReadInput(execCtx *execContext, ptr uint32) {
	if execCtx.memory == nil || len(execCtx.input) == 0 {
		return
	}

	execCtx.memory.Write(ptr, execCtx.input)
}

// hostWriteOutput reads the output from WASM memory and stores it.
// Output above the cap aborts the guest.
func hostWriteOutput(execCtx *execContext, ptr, length uint32) {
	if limit := execCtx.call.MaxOutput; limit > 0 && int(length) > limit {
		execCtx.abort(fmt.Errorf("%w: %d bytes", game.ErrResponseTooLarge, length))
	}

	if execCtx.memory == nil || length == 0 {
		return
	}

	data, ok := execCtx.memory.Read(ptr, length)
	if !ok {
		return
	}

	execCtx.output = make([]byte, length)
	copy(execCtx.output, data)
}

// hostBalanceOf writes a player's balance to outPtr.
func hostBalanceOf(execCtx *execContext, player, asset, outPtr uint32) int32 {
	if execCtx.call.View == nil {
		return StatusDenied
	}

	bal, err := execCtx.call.View.BalanceOf(int(player), game.Asset(asset))
	if err != nil {
		return execCtx.status(err)
	}

	return execCtx.writeWord(outPtr, bal)
}

// tradeOp is one of the four amount-in, amount-out imports.
type tradeOp int

const (
	quoteSell tradeOp = iota
	quoteBuy
	sell
	buy
)

// hostTrade reads an amount, runs op and writes the resulting amount.
func hostTrade(execCtx *execContext, op tradeOp, from, to, amountPtr, outPtr uint32) int32 {
	raw, ok := execCtx.memory.Read(amountPtr, wordSize)
	if !ok {
		return StatusMalformed
	}
	amount := new(uint256.Int).SetBytes(raw)
	f, t := game.Asset(from), game.Asset(to)

	var (
		out *uint256.Int
		err error
	)

	switch {
	case op == quoteSell && execCtx.call.View != nil:
		out, err = execCtx.call.View.QuoteSell(f, t, amount)
	case op == quoteBuy && execCtx.call.View != nil:
		out, err = execCtx.call.View.QuoteBuy(f, t, amount)
	case op == sell && execCtx.call.Builder != nil:
		out, err = execCtx.call.Builder.Sell(f, t, amount)
	case op == buy && execCtx.call.Builder != nil:
		out, err = execCtx.call.Builder.Buy(f, t, amount)
	default:
		return StatusDenied
	}

	if err != nil {
		return execCtx.status(err)
	}

	return execCtx.writeWord(outPtr, out)
}

// hostSettle decodes a Bundle from guest memory and settles it for target.
func hostSettle(execCtx *execContext, target, ptr, length uint32) int32 {
	if execCtx.call.Builder == nil {
		return StatusDenied
	}

	raw, ok := execCtx.memory.Read(ptr, length)
	if !ok {
		return StatusMalformed
	}

	bundle, err := types.DecodeBundle(raw)
	if err != nil {
		return StatusMalformed
	}

	settled, err := execCtx.call.Builder.Settle(int(target), bundle)
	switch {
	case err != nil:
		return execCtx.status(err)
	case !settled:
		return StatusFailed
	}

	return StatusOK
}

// writeWord stores v as a 32-byte big-endian word.
func (c *execContext) writeWord(ptr uint32, v *uint256.Int) int32 {
	word := v.Bytes32()
	if !c.memory.Write(ptr, word[:]) {
		return StatusMalformed
	}
	return StatusOK
}

// status maps a game error to a status code. Running out of budget aborts
// the guest instead.
func (c *execContext) status(err error) int32 {
	switch {
	case errors.Is(err, game.ErrBudgetExceeded):
		c.abort(err)
	case errors.Is(err, game.ErrAccess):
		return StatusDenied
	}
	return StatusRejected
}
