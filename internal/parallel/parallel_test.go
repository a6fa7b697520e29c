package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, got)
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	_, err := Map(context.Background(), items, 4, func(_ context.Context, _ int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestMap_FirstErrorCancelsRest(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	_, err := Map(context.Background(), items, 1, func(ctx context.Context, n int) (int, error) {
		started.Add(1)
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Less(t, started.Load(), int32(100))
}

func TestMap_EmptyAndCanceled(t *testing.T) {
	got, err := Map(context.Background(), []int(nil), 4, func(context.Context, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Nil(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Map(ctx, []int{1, 2}, 2, func(context.Context, int) (int, error) { return 0, nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestForEach(t *testing.T) {
	var sum atomic.Int64
	err := ForEach(context.Background(), []int64{1, 2, 3}, 0, func(_ context.Context, n int64) error {
		sum.Add(n)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum.Load())
}
