package dispatch

import "sync"

const defaultBuffer = 64

// Queue executes submitted functions one at a time, in submission order, on a
// single background goroutine. It models a serial delivery queue for listener
// callbacks.
type Queue struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewQueue starts a new serial queue.
func NewQueue() *Queue {
	q := &Queue{tasks: make(chan func(), defaultBuffer)}
	q.wg.Add(1)
	go q.loop()
	return q
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for fn := range q.tasks {
		fn()
	}
}

// Async schedules fn for execution. Blocks only when the queue buffer is full.
// Must not be called after Close.
func (q *Queue) Async(fn func()) {
	q.tasks <- fn
}

// Close stops the queue after draining already-submitted tasks.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.tasks)
	})
	q.wg.Wait()
}
