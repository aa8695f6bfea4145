package edit

import "sync"

// queueArena serializes application tasks per document. Each document gets
// its own FIFO chain, so a slow progressive reveal on one document never
// delays another document's edits, while edits for the same document always
// run in enqueue order, one at a time.
type queueArena struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
	wg    sync.WaitGroup
}

func newQueueArena() *queueArena {
	return &queueArena{tails: make(map[string]chan struct{})}
}

// Enqueue schedules task behind every task previously enqueued for the same
// document.
func (a *queueArena) Enqueue(document string, task func()) {
	a.mu.Lock()
	prev := a.tails[document]
	done := make(chan struct{})
	a.tails[document] = done
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		task()
	}()
}

// Wait blocks until every enqueued task has finished. Callers must stop
// enqueueing before waiting.
func (a *queueArena) Wait() {
	a.wg.Wait()
}
