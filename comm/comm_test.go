package comm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGroupBroadcastDeliversToEveryRank(t *testing.T) {
	group, err := LocalGroup(4)
	require.NoError(t, err)

	payload := []byte("the grouping")
	results := make([][]byte, 4)

	var wg sync.WaitGroup
	for rank, ctx := range group {
		wg.Add(1)
		go func(rank int, ctx Context) {
			defer wg.Done()
			var send []byte
			if ctx.IsCoordinator() {
				send = payload
			}
			received, err := ctx.Broadcast(send)
			assert.NoError(t, err)
			results[rank] = received
		}(rank, ctx)
	}
	wg.Wait()

	for rank, received := range results {
		assert.Equal(t, payload, received, "rank %d", rank)
	}
}

func TestLocalGroupBarrierHoldsEveryoneBack(t *testing.T) {
	group, err := LocalGroup(3)
	require.NoError(t, err)

	var before, after int32
	var wg sync.WaitGroup
	for _, ctx := range group {
		wg.Add(1)
		go func(ctx Context) {
			defer wg.Done()
			atomic.AddInt32(&before, 1)
			require.NoError(t, ctx.Barrier())
			// By the time anyone passes, everyone has arrived.
			assert.Equal(t, int32(3), atomic.LoadInt32(&before))
			atomic.AddInt32(&after, 1)
		}(ctx)
	}
	wg.Wait()
	assert.Equal(t, int32(3), after)
}

func TestLocalGroupBarrierIsReusableAcrossPhases(t *testing.T) {
	group, err := LocalGroup(2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for _, ctx := range group {
			wg.Add(1)
			go func(ctx Context) {
				defer wg.Done()
				for phase := 0; phase < 5; phase++ {
					require.NoError(t, ctx.Barrier())
				}
			}(ctx)
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("barrier deadlocked across phases")
	}
}

func TestLocalGroupRejectsBadSize(t *testing.T) {
	_, err := LocalGroup(0)
	assert.Error(t, err)
}

func TestCoordinatorRolesAreExplicit(t *testing.T) {
	group, err := LocalGroup(3)
	require.NoError(t, err)
	assert.True(t, group[0].IsCoordinator())
	assert.False(t, group[1].IsCoordinator())
	assert.False(t, group[2].IsCoordinator())
	assert.Equal(t, 3, group[1].Size())
	assert.Equal(t, 1, group[1].Rank())
}

func TestRPCGroupBarrierAndBroadcast(t *testing.T) {
	const size = 3
	coordinator, err := NewCoordinator("127.0.0.1:0", size)
	require.NoError(t, err)
	defer coordinator.Close()

	contexts := make([]Context, size)
	contexts[0] = coordinator
	for rank := 1; rank < size; rank++ {
		ctx, err := Dial(coordinator.Addr(), size, rank)
		require.NoError(t, err)
		contexts[rank] = ctx
	}

	payload := []byte("grouping over the wire")
	results := make([][]byte, size)

	var wg sync.WaitGroup
	for rank, ctx := range contexts {
		wg.Add(1)
		go func(rank int, ctx Context) {
			defer wg.Done()
			require.NoError(t, ctx.Barrier())
			var send []byte
			if ctx.IsCoordinator() {
				send = payload
			}
			received, err := ctx.Broadcast(send)
			require.NoError(t, err)
			results[rank] = received
			require.NoError(t, ctx.Barrier())
		}(rank, ctx)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("rpc group deadlocked")
	}

	for rank := 0; rank < size; rank++ {
		assert.Equal(t, payload, results[rank], "rank %d", rank)
	}
}

func TestDialRejectsBadRank(t *testing.T) {
	coordinator, err := NewCoordinator("127.0.0.1:0", 2)
	require.NoError(t, err)
	defer coordinator.Close()

	for _, rank := range []int{0, 2, -1} {
		_, err := Dial(coordinator.Addr(), 2, rank)
		assert.Error(t, err, fmt.Sprintf("rank %d", rank))
	}
}
