package treehash

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBoundedChannelMultisetAndPerProducerOrder verifies spec.md §8's
// channel property: for any interleaving of N pushes and N pops, the
// multiset of values popped equals the multiset pushed, and each
// producer's own pushes are observed by pops in that producer's order
// (spec.md §5's "Finish pushes by a given worker are observed by the
// collector in that worker's local completion order").
func TestBoundedChannelMultisetAndPerProducerOrder(t *testing.T) {
	const producers = 4
	const perProducer = 50

	ch := NewBoundedChannel[int](8)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ch.Push(p*perProducer + i)
			}
		}()
	}

	total := producers * perProducer
	got := make([]int, 0, total)
	var mu sync.Mutex
	var popWG sync.WaitGroup
	popWG.Add(1)
	go func() {
		defer popWG.Done()
		for i := 0; i < total; i++ {
			v := ch.Pop()
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}
	}()

	wg.Wait()
	popWG.Wait()

	require.Len(t, got, total)

	// multiset equality
	want := make([]int, total)
	for i := range want {
		want[i] = i
	}
	sortedGot := append([]int(nil), got...)
	sort.Ints(sortedGot)
	assert.Equal(t, want, sortedGot)

	// per-producer order preserved
	lastSeen := make([]int, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	for _, v := range got {
		p := v / perProducer
		local := v % perProducer
		assert.Greaterf(t, local, lastSeen[p], "producer %d: value %d observed out of order", p, v)
		lastSeen[p] = local
	}
}

func TestBoundedChannelBlocksAtCapacity(t *testing.T) {
	ch := NewBoundedChannel[int](1)
	ch.Push(1)

	pushed := make(chan struct{})
	go func() {
		ch.Push(2)
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("Push on a full channel returned before a Pop freed capacity")
	default:
	}

	require.Equal(t, 1, ch.Pop())
	<-pushed
	require.Equal(t, 2, ch.Pop())
}

func TestNewBoundedChannelRejectsZeroBound(t *testing.T) {
	assert.Panics(t, func() { NewBoundedChannel[int](0) })
}
