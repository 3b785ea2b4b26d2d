// Package observability provides hooks for metrics, tracing, and logging.
//
// Build pipelines that embed layoutflash can register hooks to receive
// events about extraction and image compilation without this module taking
// a dependency on any particular metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnExtractStart(ctx, input)
//	// ... read areas ...
//	observability.Pipeline().OnExtractComplete(ctx, input, len(areas), duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the build pipeline.
type PipelineHooks interface {
	// Extract events
	OnExtractStart(ctx context.Context, input string)
	OnExtractComplete(ctx context.Context, input string, areaCount int, duration time.Duration, err error)

	// Compile events
	OnCompileStart(ctx context.Context, output string, areaCount int)
	OnCompileComplete(ctx context.Context, output string, imageSize uint64, duration time.Duration, err error)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnExtractStart(context.Context, string) {}
func (NoopPipelineHooks) OnExtractComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnCompileStart(context.Context, string, int) {}
func (NoopPipelineHooks) OnCompileComplete(context.Context, string, uint64, time.Duration, error) {
}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
}
