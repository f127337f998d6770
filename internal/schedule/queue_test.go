package schedule

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portwatch/internal/adapter/enum"
)

func TestQueueOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()
	q.Push(Call{Kind: enum.CallOpenOrders, Priority: 2, EnqueuedAt: base, Seq: 1})
	q.Push(Call{Kind: enum.CallBalances, Priority: 0, EnqueuedAt: base.Add(time.Second), Seq: 2})
	q.Push(Call{Kind: enum.CallPriceTable, Priority: 0, EnqueuedAt: base, Seq: 3})
	q.Push(Call{Kind: enum.CallSymbols, Priority: 1, EnqueuedAt: base, Seq: 4})

	var kinds []enum.CallKind
	for q.Len() > 0 {
		c, ok := q.Pop()
		require.True(t, ok)
		kinds = append(kinds, c.Kind)
	}

	require.Equal(t, []enum.CallKind{
		enum.CallPriceTable,
		enum.CallBalances,
		enum.CallSymbols,
		enum.CallOpenOrders,
	}, kinds)

	_, ok := q.Pop()
	require.False(t, ok)
	_, ok = q.Peek()
	require.False(t, ok)
}

func TestQueueEqualTimestampsKeepFIFO(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()
	for i := uint64(1); i <= 50; i++ {
		q.Push(Call{Kind: enum.CallPriceTable, Priority: 0, EnqueuedAt: at, Seq: i})
	}

	for want := uint64(1); want <= 50; want++ {
		c, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, want, c.Seq)
	}
}

func TestQueueDequeueOrderIsNonDecreasing(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 20; round++ {
		q := NewQueue()
		n := 1 + rng.IntN(200)
		for i := 0; i < n; i++ {
			q.Push(Call{
				Kind:       enum.CallKinds()[rng.IntN(len(enum.CallKinds()))],
				Weight:     1 + rng.IntN(5),
				Priority:   rng.IntN(3),
				EnqueuedAt: base.Add(time.Duration(rng.IntN(30)) * time.Millisecond),
				Seq:        uint64(i + 1),
			})
		}

		prev, ok := q.Pop()
		require.True(t, ok)
		for q.Len() > 0 {
			next, _ := q.Pop()
			require.LessOrEqual(t, prev.Priority, next.Priority)
			if prev.Priority == next.Priority {
				require.False(t, next.EnqueuedAt.Before(prev.EnqueuedAt), "round %d: enqueue time went backwards", round)
			}
			prev = next
		}
	}
}
