package queue

import (
	"sync"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// MemQueue is a bounded FIFO of readings waiting for the emission pipeline.
type MemQueue struct {
	mu   sync.Mutex
	data []*domain.Reading
	cap  int
	peak int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{
		data: make([]*domain.Reading, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(r *domain.Reading) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, r)
	if len(q.data) > q.peak {
		q.peak = len(q.data)
	}
	return true
}

// DequeueBatch removes up to max readings in arrival order; max <= 0 takes
// everything.
func (q *MemQueue) DequeueBatch(max int) []*domain.Reading {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]*domain.Reading, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// Peak is the highest length observed since creation.
func (q *MemQueue) Peak() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.peak
}

var _ ports.ReadingQueue = (*MemQueue)(nil)
