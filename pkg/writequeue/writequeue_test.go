package writequeue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVL() model.ValueList {
	return model.ValueList{
		Identifier: model.Identifier{Host: "h", Plugin: "p", Type: "t"},
		Values:     []model.Value{model.NewGauge(1)},
	}
}

func TestDropProbabilityBounds(t *testing.T) {
	q := New(nil, WithWatermarks(100, 200))
	assert.Equal(t, 0.0, q.dropProbability(0))
	assert.Equal(t, 0.0, q.dropProbability(100))
	assert.Equal(t, 1.0, q.dropProbability(200))
	assert.Equal(t, 1.0, q.dropProbability(250))
	assert.InDelta(t, 0.5, q.dropProbability(150), 1e-9)
}

func TestHighZeroDisablesShedding(t *testing.T) {
	q := New(nil, WithWatermarks(10, 0))
	for _, n := range []int{0, 10, 1000, 1_000_000} {
		assert.Equal(t, 0.0, q.dropProbability(n))
	}
}

func TestOrderingWithinOneProducer(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	q := New(func(ctx context.Context, e Entry) {
		n, _ := e.Context.(int)
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.Run(ctx, 1) // single worker: no interleaving possible to test ordering

	for i := 0; i < 20; i++ {
		q.Enqueue(testVL(), cdtime.FromSeconds(1), i)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 20
	}, time.Second, time.Millisecond)

	cancel()
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestEnqueueStampsDefaults(t *testing.T) {
	var got model.ValueList
	done := make(chan struct{})
	q := New(func(ctx context.Context, e Entry) {
		got = e.ValueList
		close(done)
	})
	ctx, cancel := context.WithCancel(context.Background())
	q.Run(ctx, 1)
	defer func() { cancel(); q.Wait() }()

	vl := testVL()
	vl.Host = ""
	vl.Interval = 0
	q.Enqueue(vl, cdtime.FromSeconds(5), nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("entry never processed")
	}

	assert.NotEmpty(t, got.Host)
	assert.Equal(t, cdtime.FromSeconds(5), got.Interval)
	assert.False(t, got.Time.IsZero())
}

func TestStopDrainsQueueBeforeWorkersExit(t *testing.T) {
	// Workers exit only once the queue is empty and stopped is set (spec
	// §4.7 step 1): a stop request does not abandon entries already
	// queued, it just stops accepting the pool staying alive forever.
	var processed atomic.Int64
	block := make(chan struct{})
	q := New(func(ctx context.Context, e Entry) {
		<-block
		processed.Add(1)
	})
	ctx, cancel := context.WithCancel(context.Background())
	q.Run(ctx, 1)

	for i := 0; i < 5; i++ {
		q.Enqueue(testVL(), cdtime.FromSeconds(1), nil)
	}
	require.Eventually(t, func() bool { return q.Len() >= 1 }, time.Second, time.Millisecond)

	cancel()
	close(block)
	q.Wait()

	assert.Equal(t, int64(5), processed.Load())
	assert.Equal(t, 0, q.Len())
}
