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

package music

import (
	"sync"
	"time"
)

// Signal is a resettable boolean event shared between the playback
// controller, its worker goroutine and the audio render callback.
// All methods are safe for concurrent use.
type Signal struct {
	mu   sync.Mutex
	cond *sync.Cond
	set  bool
}

func NewSignal() *Signal {
	s := new(Signal)
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		s.cond.Broadcast()
	}
}

func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = false
}

func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// WaitTimeout blocks until the signal is set or the timeout elapses.
// It reports whether the signal was set.
func (s *Signal) WaitTimeout(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		return true
	}

	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	deadline := time.Now().Add(timeout)
	for !s.set && time.Now().Before(deadline) {
		s.cond.Wait()
	}
	return s.set
}
