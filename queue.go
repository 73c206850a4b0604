package corebridge

import (
	"sync"

	"github.com/eapache/queue"
)

// taskQueue is a mutex-guarded FIFO of loop tasks over a growable ring
// buffer. The underlying queue is not safe for concurrent use on its own.
type taskQueue struct {
	q  *queue.Queue
	mu sync.Mutex
}

func newTaskQueue() *taskQueue {
	return &taskQueue{q: queue.New()}
}

// Push appends fn to the queue.
func (t *taskQueue) Push(fn func()) {
	t.mu.Lock()
	t.q.Add(fn)
	t.mu.Unlock()
}

// Pop removes and returns the oldest task, reporting whether one existed.
func (t *taskQueue) Pop() (func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.q.Length() == 0 {
		return nil, false
	}
	return t.q.Remove().(func()), true
}

// Len returns the number of queued tasks.
func (t *taskQueue) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.q.Length()
}
