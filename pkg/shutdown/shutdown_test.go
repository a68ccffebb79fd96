package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdown_RunsAllHandlers(t *testing.T) {
	m := NewManager()
	var n int32
	for i := 0; i < 3; i++ {
		m.OnShutdown("h", func(ctx context.Context) { atomic.AddInt32(&n, 1) })
	}
	assert.True(t, m.Shutdown(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&n))
}

func TestShutdown_Timeout(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	defer close(release)
	m.OnShutdown("slow", func(ctx context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, m.Shutdown(ctx))
}

func TestShutdown_Empty(t *testing.T) {
	assert.True(t, NewManager().Shutdown(context.Background()))
}
