package roundabout

import (
	"sync"

	"github.com/matzehuels/roundabout/pkg/errors"
)

// entryQueue is the FIFO of vehicles waiting at one entry. Tickets count
// enqueues and served counts dequeues, both from zero. Withdrawn vehicles use
// up a ticket without being served, so tickets of dequeued vehicles grow
// strictly while served grows by exactly one.
type entryQueue[T any] struct {
	mu      sync.Mutex
	waiting []queued[T]
	tickets uint64
	served  uint64
}

type queued[T any] struct {
	owner  *T
	ticket uint64
}

func (q *entryQueue[T]) push(v *T) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.tickets
	q.tickets++
	q.waiting = append(q.waiting, queued[T]{owner: v, ticket: t})
	return t
}

func (q *entryQueue[T]) atHead(v *T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting) > 0 && q.waiting[0].owner == v
}

// pop removes v from the head and returns the served position.
func (q *entryQueue[T]) pop(v *T) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiting) == 0 || q.waiting[0].owner != v {
		return 0, errors.New(errors.ErrCodeProtocol, "dequeue by a vehicle that is not at the head")
	}
	q.waiting[0] = queued[T]{}
	q.waiting = q.waiting[1:]
	pos := q.served
	q.served++
	return pos, nil
}

// remove drops v from wherever it waits. It is used when a waiting vehicle
// is cancelled and does not count as served.
func (q *entryQueue[T]) remove(v *T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.waiting {
		if e.owner == v {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

func (q *entryQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
