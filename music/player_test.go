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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/voice-agent-go/device"
)

// fakeStream pumps the render callback from its own goroutine while
// started, mimicking a callback-driven device.
type fakeStream struct {
	fn        device.RenderFunc
	blockSize int

	mu      sync.Mutex
	running bool
	closed  bool
	starts  int
	stops   int
}

func (s *fakeStream) pump() {
	buf := make([]int16, s.blockSize)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		running := s.running
		s.mu.Unlock()

		if running {
			s.fn(buf)
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.starts++
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stops++
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

type fakeDevice struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (d *fakeDevice) open(sampleRate, blockSize int, fn device.RenderFunc) (device.Stream, error) {
	s := &fakeStream{fn: fn, blockSize: blockSize}
	go s.pump()

	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevice) streamCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

func (d *fakeDevice) lastStream() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type handoffRecorder struct {
	mu    sync.Mutex
	calls []bool
}

func (r *handoffRecorder) record(interrupted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, interrupted)
}

func (r *handoffRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.calls...)
}

func newTestController(t *testing.T) (*Controller, *fakeDevice, *handoffRecorder) {
	t.Helper()
	dev := new(fakeDevice)
	rec := new(handoffRecorder)
	ctrl := NewController(ControllerParams{
		OpenOutput:   dev.open,
		OnHandoff:    rec.record,
		JoinTimeout:  time.Second,
		PollInterval: time.Millisecond,
		BlockSize:    64,
	})
	return ctrl, dev, rec
}

func testJob(samples int) Job {
	return Job{PCM: make([]int16, samples), SampleRate: 16000, Title: "Test Track", Artist: "Tester"}
}

func TestControllerPlaysToCompletion(t *testing.T) {
	ctrl, _, rec := newTestController(t)

	ctrl.Play(testJob(256))
	assert.True(t, ctrl.IsPlaying())

	assert.Eventually(t, func() bool { return !ctrl.IsPlaying() }, time.Second, time.Millisecond)
	assert.Equal(t, []bool{false}, rec.snapshot())
}

func TestControllerStopDeliversSingleHandoff(t *testing.T) {
	ctrl, _, rec := newTestController(t)

	// Enough samples that playback cannot finish on its own.
	ctrl.Play(testJob(16000 * 60))
	ctrl.Stop()

	assert.False(t, ctrl.IsPlaying())
	assert.Equal(t, []bool{false}, rec.snapshot())

	// A second stop has nothing to do.
	ctrl.Stop()
	assert.Equal(t, []bool{false}, rec.snapshot())
}

func TestControllerInterruptPausesAndResumes(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	ctrl.Play(testJob(16000 * 60))
	require.Eventually(t, func() bool { return dev.streamCount() == 1 }, time.Second, time.Millisecond)
	stream := dev.lastStream()

	ctrl.Interrupt()
	assert.Eventually(t, func() bool {
		_, stops := stream.counts()
		return stops == 1
	}, time.Second, time.Millisecond)

	// Still considered playing while paused, so a wake word during the
	// pause re-enters the music confirmation flow.
	assert.True(t, ctrl.IsPlaying())
	assert.Empty(t, rec.snapshot())

	ctrl.Resume()
	assert.Eventually(t, func() bool {
		starts, _ := stream.counts()
		return starts == 2
	}, time.Second, time.Millisecond)

	// The same decoded buffer keeps playing on the same stream.
	assert.Equal(t, 1, dev.streamCount())

	ctrl.Stop()
	assert.Equal(t, []bool{false}, rec.snapshot())
}

func TestControllerInterruptedStopIsNotAnInterruptedFinish(t *testing.T) {
	ctrl, _, rec := newTestController(t)

	ctrl.Play(testJob(16000 * 60))
	ctrl.Interrupt()
	ctrl.Stop()

	assert.Equal(t, []bool{false}, rec.snapshot())
}

func TestControllerPlayReplacesWorkerWithoutHandoff(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	ctrl.Play(testJob(16000 * 60))
	ctrl.Play(testJob(16000 * 60))

	require.Eventually(t, func() bool { return dev.streamCount() == 2 }, time.Second, time.Millisecond)
	assert.True(t, ctrl.IsPlaying())

	// Replacing a track must not notify the agent that playback ended.
	assert.Empty(t, rec.snapshot())

	ctrl.Stop()
	assert.Equal(t, []bool{false}, rec.snapshot())
}

func TestSignal(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.IsSet())
	assert.False(t, s.WaitTimeout(time.Millisecond))

	s.Set()
	assert.True(t, s.IsSet())
	assert.True(t, s.WaitTimeout(time.Millisecond))

	s.Clear()
	assert.False(t, s.IsSet())

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Set()
	}()
	assert.True(t, s.WaitTimeout(time.Second))
}
