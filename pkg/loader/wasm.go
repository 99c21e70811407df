package loader

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/datanorm/datanorm/pkg/frame"
)

// WASMAdjustment runs a compiled WebAssembly module as a column adjustment.
// The module must export `adjust(f64) f64`; it is called once per
// non-missing numeric cell.
type WASMAdjustment struct {
	runtime wazero.Runtime
	fn      api.Function
}

// NewWASMAdjustment compiles and instantiates a WASM module. The caller owns
// the returned adjustment and must Close it when done.
func NewWASMAdjustment(ctx context.Context, wasmBytes []byte) (*WASMAdjustment, error) {
	runtime := wazero.NewRuntime(ctx)
	module, err := runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("instantiating adjustment module: %w", err)
	}
	fn := module.ExportedFunction("adjust")
	if fn == nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("adjustment module does not export %q", "adjust")
	}
	return &WASMAdjustment{runtime: runtime, fn: fn}, nil
}

// Apply is the SeriesFunc form of the adjustment.
func (w *WASMAdjustment) Apply(s *frame.Series) (*frame.Series, error) {
	ctx := context.Background()
	return s.Map(func(v any) (any, error) {
		var x float64
		switch val := v.(type) {
		case float64:
			x = val
		case int64:
			x = float64(val)
		default:
			return nil, fmt.Errorf("cell type %T is not numeric", v)
		}
		results, err := w.fn.Call(ctx, api.EncodeF64(x))
		if err != nil {
			return nil, fmt.Errorf("calling adjust: %w", err)
		}
		return api.DecodeF64(results[0]), nil
	})
}

// Close releases the module's runtime.
func (w *WASMAdjustment) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}
