package tournament

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModule_CloseIsIdempotent(t *testing.T) {
	m := &Module{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stop:   make(chan struct{}),
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Close(t.Context()))
		}()
	}
	wg.Wait()

	select {
	case <-m.stop:
	default:
		t.Fatal("stop channel must be closed")
	}
}
