package worker

import "sync"

type node struct {
	cmd  Command
	prev *node
}

// commandQueue is an unbounded FIFO with a single consumer. Pushing never
// blocks the issuer; the consumer parks on Wake when the queue drains.
type commandQueue struct {
	lock sync.Mutex
	head *node
	tail *node
	size int
	wake chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		wake: make(chan struct{}, 1),
	}
}

func (q *commandQueue) Push(cmd Command) {
	q.lock.Lock()
	n := &node{cmd: cmd}
	if q.head == nil {
		q.head = n
		q.tail = n
	} else {
		q.tail.prev = n
		q.tail = n
	}
	q.size++
	q.lock.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *commandQueue) Pop() (Command, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.head == nil {
		return nil, false
	}
	tmp := q.head
	if q.head.prev != nil {
		q.head = q.head.prev
	} else {
		// removing the last one
		q.head = nil
		q.tail = nil
	}
	q.size--
	return tmp.cmd, true
}

func (q *commandQueue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.size
}

// Wake fires after a push into an empty queue. The consumer must still call
// Pop in a loop, the signal is only a hint.
func (q *commandQueue) Wake() <-chan struct{} {
	return q.wake
}
