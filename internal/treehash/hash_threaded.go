package treehash

import (
	"context"
	"database/sql"
	"log"

	"golang.org/x/sync/errgroup"
)

// workItem is what the driver submits to a worker. done is the in-band
// sentinel: the channel element type itself carries "no more work", so the
// channel never needs a separate closed state (spec.md §3.5).
type workItem struct {
	done  bool
	index uint64
	node  Node
	path  string
}

// finishItem is what a worker reports back to the collector.
type finishItem struct {
	done  bool
	index uint64
	node  Node
	sum   [20]byte
}

// ThreadedHasher is the worker-pool + collector pipeline of spec.md §4.7: W
// worker goroutines read (index, node, path) off a bounded work channel,
// hash the file, and push (index, node, hash) onto a bounded finish
// channel; one collector goroutine drains the finish channel and performs
// every SQL write, so the database handle is touched by exactly one
// goroutine despite hashing running on W of them (spec.md §5). Grounded on
// the teacher's internals/walk.go TraverseNode, which fans file hashing out
// across `concurrentFSUnits` goroutines and funnels results back through a
// single directory-hash collector goroutine; here the errgroup.Group
// replaces the teacher's hand-rolled sync.WaitGroup + error channel for
// first-error capture across the whole pool.
//
// All channel traffic after construction goes through the context-aware
// PushCtx/PopCtx, keyed on the errgroup's derived context: the moment the
// collector returns a fatal error, that context is cancelled, every blocked
// Push/Pop wakes (via BoundedChannel.CancelOn) and returns instead of
// waiting on a channel nothing drains anymore, and HashFile/Finalize
// observe the failure instead of wedging the whole pipeline (spec.md §5,
// §7: a fatal error must terminate the process, not hang it).
type ThreadedHasher struct {
	ins      *hashInserter
	progress *State
	workers  int

	work   *BoundedChannel[workItem]
	finish *BoundedChannel[finishItem]

	ctx   context.Context
	group *errgroup.Group
}

// NewThreadedHasher prepares the insert statement against tx and starts the
// worker pool and collector goroutine. workers is W; progress may be nil
// (no accounting performed).
func NewThreadedHasher(ctx context.Context, tx *sql.Tx, workers int, progress *State) (*ThreadedHasher, error) {
	if workers < 1 {
		workers = 1
	}
	ins, err := prepareHashInsert(ctx, tx)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = NewState(0, 0, nil)
	}

	bound := uint(2 * workers)
	h := &ThreadedHasher{
		ins:      ins,
		progress: progress,
		workers:  workers,
		work:     NewBoundedChannel[workItem](bound),
		finish:   NewBoundedChannel[finishItem](bound),
	}

	group, gctx := errgroup.WithContext(ctx)
	h.group = group
	h.ctx = gctx
	h.work.CancelOn(gctx)
	h.finish.CancelOn(gctx)

	for u := 0; u < workers; u++ {
		group.Go(func() error {
			h.runWorker()
			return nil
		})
	}
	group.Go(func() error {
		return h.runCollector(gctx)
	})

	return h, nil
}

// runWorker pops work items until it sees the in-band done sentinel, then
// forwards one done sentinel to the collector and exits (spec.md §4.7:
// "Worker loop"). A per-file I/O error is logged and the worker neither
// pushes a result nor exits — it just moves on to the next item. If the
// shared context is cancelled (the collector hit a fatal error) while the
// worker is blocked on either channel, it gives up and returns instead of
// waiting on a channel the collector has already stopped draining.
func (h *ThreadedHasher) runWorker() {
	for {
		item, err := h.work.PopCtx(h.ctx)
		if err != nil {
			return
		}
		if item.done {
			h.finish.PushCtx(h.ctx, finishItem{done: true})
			return
		}

		sum, err := hashFileContents(item.path)
		if err != nil {
			log.Printf("Warning: error hashing %s", item.path)
			continue
		}
		if err := h.finish.PushCtx(h.ctx, finishItem{index: item.index, node: item.node, sum: sum}); err != nil {
			return
		}
	}
}

// runCollector keeps a count starting at W of workers, draining the finish
// channel; a done sentinel decrements the count, and the collector returns
// once it reaches zero (spec.md §4.7: "Collector loop"). SQL insertion
// order here is collector-arrival order, not ascending index — only the
// index field itself carries the original scan order downstream. Returning
// a non-nil error here cancels ctx via errgroup, which is what unblocks
// every worker and the driver's own submit loop.
func (h *ThreadedHasher) runCollector(ctx context.Context) error {
	remaining := h.workers
	for remaining > 0 {
		item, err := h.finish.PopCtx(ctx)
		if err != nil {
			return err
		}
		if item.done {
			remaining--
			continue
		}
		h.progress.Update(item.node)
		if err := h.ins.insert(ctx, item.index, item.sum[:]); err != nil {
			return err
		}
	}
	return nil
}

// HashFile submits (index, node, path) to the work channel in scan order
// (spec.md §4.7: "Driver submit"). It returns the shared context's error
// once the collector has failed, rather than blocking forever against a
// work channel nobody is draining anymore.
func (h *ThreadedHasher) HashFile(ctx context.Context, index uint64, node Node, path string) error {
	return h.work.PushCtx(h.ctx, workItem{index: index, node: node, path: path})
}

// Finalize pushes W done sentinels to the work channel (best effort — if
// the shared context is already cancelled, workers have already stopped
// popping and there is nothing to wake), then waits for every worker and
// the collector to finish, and releases the prepared statement. The error
// returned is the first fatal error any goroutine in the pool hit (e.g. the
// collector's SQL step failure), which is the one callers should surface
// instead of whatever incidental "context cancelled" a blocked HashFile
// call may have seen.
func (h *ThreadedHasher) Finalize() error {
	for i := 0; i < h.workers; i++ {
		h.work.PushCtx(h.ctx, workItem{done: true})
	}
	err := h.group.Wait()
	if ferr := h.ins.finalize(); err == nil {
		err = ferr
	}
	return err
}
