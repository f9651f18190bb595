// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package asyncqueue

import (
	"sync"
	"time"
)

// Queue is a condition-variable-backed FIFO queue for handing values
// between goroutines and device callback threads.
//
// An unbounded queue (capacity 0) accepts every Put. A bounded queue
// additionally supports TryPut, which never blocks and fails when the
// queue is full; this is the only submission method safe to call from a
// real-time audio callback.
type Queue[T any] struct {
	cond     *sync.Cond
	values   []T
	capacity int
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		cond: sync.NewCond(&sync.Mutex{}),
	}
}

// NewBounded creates a queue that holds at most capacity values.
// A capacity <= 0 means unbounded.
func NewBounded[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		cond:     sync.NewCond(&sync.Mutex{}),
		capacity: capacity,
	}
}

// Put appends a value, growing the queue as needed.
func (q *Queue[T]) Put(v T) {
	q.cond.L.Lock()
	q.put(v)
	q.cond.L.Unlock()
}

// TryPut appends a value unless the queue is bounded and full.
// The lock is held only for the duration of a slice append, so the hold
// time is independent of queue depth.
func (q *Queue[T]) TryPut(v T) bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	if q.capacity > 0 && len(q.values) >= q.capacity {
		return false
	}
	q.put(v)
	return true
}

// Get removes and returns the oldest value, blocking until one is available.
func (q *Queue[T]) Get() T {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	for len(q.values) == 0 {
		q.cond.Wait()
	}
	return q.get()
}

// GetTimeout removes and returns the oldest value, waiting at most timeout.
// The second return value is false if the timeout elapsed first.
func (q *Queue[T]) GetTimeout(timeout time.Duration) (T, bool) {
	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		q.cond.L.Lock()
		timedOut = true
		q.cond.L.Unlock()
		q.cond.Broadcast()
	})
	defer timer.Stop()

	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	for len(q.values) == 0 && !timedOut {
		q.cond.Wait()
	}

	if len(q.values) == 0 {
		var zero T
		return zero, false
	}
	return q.get(), true
}

// GetNoWait removes and returns the oldest value without blocking.
func (q *Queue[T]) GetNoWait() (T, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	var zero T
	if len(q.values) == 0 {
		return zero, false
	}

	return q.get(), true
}

func (q *Queue[T]) IsEmpty() bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	return len(q.values) == 0
}

func (q *Queue[T]) Len() int {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	return len(q.values)
}

func (q *Queue[T]) put(v T) {
	q.values = append(q.values, v)
	q.cond.Broadcast()
}

func (q *Queue[T]) get() T {
	v := q.values[0]
	copy(q.values[:len(q.values)-1], q.values[1:])
	clear(q.values[len(q.values)-1:]) // helps GC
	q.values = q.values[:len(q.values)-1]
	q.cond.Broadcast()
	return v
}
