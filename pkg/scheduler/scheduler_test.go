package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msToTime(ms int64) cdtime.Time {
	return cdtime.FromNanos(ms * int64(time.Millisecond))
}

func TestSuccessfulReadKeepsBaseInterval(t *testing.T) {
	s := New(WithMaxReadInterval(time.Second))
	var mu sync.Mutex
	var times []time.Time

	done := make(chan struct{})
	err := s.RegisterRead("ok", "", func(ctx context.Context) error {
		mu.Lock()
		times = append(times, time.Now())
		n := len(times)
		mu.Unlock()
		if n >= 3 {
			select {
			case <-done:
			default:
				close(done)
			}
		}
		return nil
	}, msToTime(20))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx, 1)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read never fired three times")
	}
	cancel()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(times), 3)
	gap1 := times[1].Sub(times[0])
	gap2 := times[2].Sub(times[1])
	assert.InDelta(t, 20*time.Millisecond, gap1, float64(15*time.Millisecond))
	assert.InDelta(t, 20*time.Millisecond, gap2, float64(15*time.Millisecond))
}

func TestFailingReadBacksOffDoubling(t *testing.T) {
	s := New(WithMaxReadInterval(10 * time.Second))
	var mu sync.Mutex
	var times []time.Time
	done := make(chan struct{})

	err := s.RegisterRead("fail", "", func(ctx context.Context) error {
		mu.Lock()
		times = append(times, time.Now())
		n := len(times)
		mu.Unlock()
		if n >= 5 {
			select {
			case <-done:
			default:
				close(done)
			}
		}
		return assertErr
	}, msToTime(10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx, 1)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("read never failed five times")
	}
	cancel()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(times), 5)

	base := times[0]
	offsets := make([]time.Duration, 5)
	for i := 0; i < 5; i++ {
		offsets[i] = times[i].Sub(base)
	}
	// Expected offsets in units of the base interval: 0, 1, 3, 7, 15.
	wantMultiples := []float64{0, 1, 3, 7, 15}
	unit := 10 * time.Millisecond
	for i, want := range wantMultiples {
		assert.InDelta(t, float64(want)*float64(unit), float64(offsets[i]), float64(unit)*2, "offset %d", i)
	}
}

func TestUnregisterStopsFurtherInvocations(t *testing.T) {
	s := New()
	var mu sync.Mutex
	count := 0

	err := s.RegisterRead("once", "", func(ctx context.Context) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, msToTime(10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx, 1)

	time.Sleep(25 * time.Millisecond)
	require.NoError(t, s.UnregisterRead("once"))

	mu.Lock()
	countAtUnregister := count
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, count, countAtUnregister+1) // at most one in-flight invocation races the unregister
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "read failed" }
