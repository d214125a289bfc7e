package match

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModule() *Module {
	return &Module{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stop:   make(chan struct{}),
	}
}

func waitDone(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("module Run did not return")
	}
}

func TestModule_Lifecycle(t *testing.T) {
	tests := []struct {
		name string
		stop func(m *Module, cancel context.CancelFunc)
	}{
		{
			name: "close from another goroutine",
			stop: func(m *Module, _ context.CancelFunc) {
				var closers sync.WaitGroup
				for i := 0; i < 3; i++ {
					closers.Add(1)
					go func() {
						defer closers.Done()
						assert.NoError(t, m.Close())
					}()
				}
				closers.Wait()
			},
		},
		{
			name: "context cancelled",
			stop: func(_ *Module, cancel context.CancelFunc) { cancel() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(1)
			go m.Run(ctx, &wg)

			tt.stop(m, cancel)
			waitDone(t, &wg)
			require.NoError(t, m.Close())
		})
	}
}
