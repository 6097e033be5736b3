package httpengine

import (
	"context"
	"sync"
	"testing"

	"github.com/GoCodeAlone/flow/lifecycle"
)

func collectData(mu *sync.Mutex, into *[]map[string]any) lifecycle.Listener {
	return func(_ context.Context, event lifecycle.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if data, ok := event.Data.(map[string]any); ok {
			*into = append(*into, data)
		}
		return nil
	}
}

// testContext stands in for t.Context on toolchains older than Go 1.24: the
// returned context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
