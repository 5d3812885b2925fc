package podvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/zeebo/blake3"

	"Nottingham/internal/game"
)

var (
	// ErrModuleNotFound is returned when a module ID is not found in the pool.
	ErrModuleNotFound = errors.New("module not found")

	// ErrMissingExport is returned when a program lacks a required export.
	ErrMissingExport = errors.New("missing export")
)

// Entry points every player program exports.
const (
	EntryCreateBundle = "create_bundle"
	EntryBuildBlock   = "build_block"
)

// zstdMagic prefixes zstd frames.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// maxProgramSize caps a decompressed program.
const maxProgramSize = 64 << 20

// Pool manages compiled player programs.
// Programs are compiled once and instantiated fresh for every call.
type Pool struct {
	runtime wazero.Runtime                      // runtime is the wazero runtime instance
	host    api.Module                          // host is the shared env module
	modules map[[32]byte]wazero.CompiledModule // modules maps blake3 hash to compiled module
	mu      sync.RWMutex                        // mu protects modules map
}

// New creates a Pool whose instances are capped at maxPages of linear memory
// and aborted when their context is done.
func New(maxPages uint32) (*Pool, error) {
	ctx := context.Background()

	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(maxPages)

	p := &Pool{
		runtime: wazero.NewRuntimeWithConfig(ctx, cfg),
		modules: make(map[[32]byte]wazero.CompiledModule),
	}

	host, err := p.buildHostModule(ctx)
	if err != nil {
		_ = p.runtime.Close(ctx)
		return nil, fmt.Errorf("build host module:\n%w", err)
	}
	p.host = host

	return p, nil
}

// Load compiles and stores a program, decompressing zstd artifacts first.
// The module ID is the blake3 hash of the uncompressed bytes.
func (p *Pool) Load(artifact []byte) ([32]byte, error) {
	wasmBytes, err := decompress(artifact)
	if err != nil {
		return [32]byte{}, err
	}

	id := blake3.Sum256(wasmBytes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.modules[id]; exists {
		return id, nil
	}

	compiled, err := p.runtime.CompileModule(context.Background(), wasmBytes)
	if err != nil {
		return [32]byte{}, fmt.Errorf("compile module: %w", err)
	}

	if err := checkExports(compiled); err != nil {
		compiled.Close(context.Background())
		return [32]byte{}, err
	}

	p.modules[id] = compiled

	return id, nil
}

// Execute runs entry of a program with the given input.
// Returns the output bytes and the amount of gas consumed.
func (p *Pool) Execute(ctx context.Context, id [32]byte, entry string, input []byte, call Call) ([]byte, uint64, error) {
	p.mu.RLock()
	compiled, exists := p.modules[id]
	p.mu.RUnlock()

	if !exists {
		return nil, 0, ErrModuleNotFound
	}

	return p.executeModule(ctx, compiled, entry, input, call)
}

// executeModule instantiates and runs a compiled module.
func (p *Pool) executeModule(ctx context.Context, compiled wazero.CompiledModule, entry string, input []byte, call Call) ([]byte, uint64, error) {
	execCtx := &execContext{
		input: input,
		call:  call,
		meter: game.NewGasMeter(call.Gas),
	}
	ctx = withExecContext(ctx, execCtx)

	// Anonymous instances never collide with each other
	instance, err := p.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, execCtx.meter.Used(), fmt.Errorf("instantiate module: %w", err)
	}
	defer instance.Close(context.Background())

	execCtx.memory = instance.Memory()

	return p.callEntry(ctx, instance, entry, execCtx)
}

// callEntry calls an exported function on the WASM instance.
func (p *Pool) callEntry(ctx context.Context, instance api.Module, entry string, execCtx *execContext) ([]byte, uint64, error) {
	fn := instance.ExportedFunction(entry)
	if fn == nil {
		return nil, execCtx.meter.Used(), fmt.Errorf("%w: %s", ErrMissingExport, entry)
	}

	_, err := fn.Call(ctx)

	switch {
	case execCtx.fault != nil:
		return nil, execCtx.meter.Used(), execCtx.fault
	case err != nil && ctx.Err() != nil:
		return nil, execCtx.meter.Used(), fmt.Errorf("%w: %v", game.ErrBudgetExceeded, ctx.Err())
	case err != nil:
		return nil, execCtx.meter.Used(), fmt.Errorf("%s: %w", entry, err)
	}

	return execCtx.output, execCtx.meter.Used(), nil
}

// Unload removes a module from the pool.
func (p *Pool) Unload(id [32]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if compiled, exists := p.modules[id]; exists {
		compiled.Close(context.Background())
		delete(p.modules, id)
	}
}

// Close releases all resources held by the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, compiled := range p.modules {
		compiled.Close(context.Background())
		delete(p.modules, id)
	}

	return p.runtime.Close(context.Background())
}

// checkExports rejects programs without memory or an entry point.
func checkExports(compiled wazero.CompiledModule) error {
	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		return fmt.Errorf("%w: memory", ErrMissingExport)
	}

	funcs := compiled.ExportedFunctions()
	for _, name := range []string{EntryCreateBundle, EntryBuildBlock} {
		if _, ok := funcs[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
	}

	return nil
}

// decompress returns artifact unchanged unless it is a zstd frame.
func decompress(artifact []byte) ([]byte, error) {
	if !bytes.HasPrefix(artifact, zstdMagic) {
		return artifact, nil
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxProgramSize))
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(artifact, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress program: %w", err)
	}

	return out, nil
}
