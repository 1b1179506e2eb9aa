package mwha

import (
	"sync"
	"time"
)

// changeRequest asks the worker to write one attribute to a zone.
type changeRequest struct {
	zone ZoneID
	attr Attribute
}

// queueMessage is one unit on the change queue: a change request, or
// the poison marker telling the worker to exit.
type queueMessage struct {
	change changeRequest
	poison bool
}

// changeQueue is the unbounded FIFO between the bus handlers and the
// worker. Pushes never block, so a slow or wedged device can never
// back-pressure message dispatch.
type changeQueue struct {
	mu     sync.Mutex
	items  []queueMessage
	notify chan struct{}
}

func newChangeQueue() *changeQueue {
	return &changeQueue{notify: make(chan struct{}, 1)}
}

// push appends one message and wakes a waiting consumer.
func (q *changeQueue) push(msg queueMessage) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// tryPop removes the head without waiting.
func (q *changeQueue) tryPop() (queueMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return queueMessage{}, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return msg, true
}

// popWait removes the head, waiting up to timeout for one to arrive.
// The second return is false when the timeout elapsed with the queue
// still empty.
func (q *changeQueue) popWait(timeout time.Duration) (queueMessage, bool) {
	if msg, ok := q.tryPop(); ok {
		return msg, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			// The notification can be stale if tryPop already drained
			// the item it announced; keep waiting in that case.
			if msg, ok := q.tryPop(); ok {
				return msg, true
			}
		case <-timer.C:
			return queueMessage{}, false
		}
	}
}
