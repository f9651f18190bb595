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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := New[int]()

	assert.True(t, q.IsEmpty())

	q.Put(1)
	assert.False(t, q.IsEmpty())

	q.Put(2)
	q.Put(3)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, q.Get())
	assert.Equal(t, 2, q.Get())
	assert.Equal(t, 3, q.Get())
	assert.True(t, q.IsEmpty())

	q.Put(4)

	v, ok := q.GetNoWait()
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	v, ok = q.GetNoWait()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestQueueGetTimeout(t *testing.T) {
	q := New[string]()

	v, ok := q.GetTimeout(10 * time.Millisecond)
	assert.False(t, ok)
	assert.Zero(t, v)

	q.Put("a")
	v, ok = q.GetTimeout(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestQueueTryPutBounded(t *testing.T) {
	q := NewBounded[int](2)

	assert.True(t, q.TryPut(1))
	assert.True(t, q.TryPut(2))
	assert.False(t, q.TryPut(3), "full bounded queue must reject without blocking")

	assert.Equal(t, 1, q.Get())
	assert.True(t, q.TryPut(3), "draining must make room again")

	assert.Equal(t, 2, q.Get())
	assert.Equal(t, 3, q.Get())
}

func TestQueueTryPutUnbounded(t *testing.T) {
	q := New[int]()
	for i := range 1000 {
		assert.True(t, q.TryPut(i))
	}
	assert.Equal(t, 1000, q.Len())
}
