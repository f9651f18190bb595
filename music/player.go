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

// Package music plays decoded tracks on a render stream, with
// cooperative pause/resume and stop driven by shared signals. At most
// one worker goroutine is alive at a time; every exit path delivers
// exactly one cleanup handoff to the agent.
package music

import (
	"cmp"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nlpodyssey/voice-agent-go/device"
)

const (
	defaultJoinTimeout  = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Controller owns music playback. Play replaces the current track,
// Stop ends it, Interrupt/Resume toggle a cooperative pause used while
// a wake word awaits confirmation.
type Controller struct {
	openOutput   device.OutputOpener
	onHandoff    func(interrupted bool)
	joinTimeout  time.Duration
	pollInterval time.Duration
	blockSize    int
	logger       *slog.Logger

	interrupt *Signal
	stop      *Signal
	finished  *Signal

	playing atomic.Bool

	mu               sync.Mutex
	current          *worker
	cleanupScheduled bool
}

type ControllerParams struct {
	// OpenOutput opens the render stream for each job.
	OpenOutput device.OutputOpener

	// OnHandoff is invoked exactly once per job when playback ends.
	// interrupted is true when playback was cut short by a wake word
	// or a playback fault, false for natural completion or an explicit
	// stop. It runs outside the controller lock. Optional.
	OnHandoff func(interrupted bool)

	// Optional bound on waiting for a worker to exit. Defaults to 5s.
	JoinTimeout time.Duration

	// Optional worker signal-polling interval. Defaults to 100ms.
	PollInterval time.Duration

	// Optional render block size in samples. Defaults to 50ms of audio
	// at the job's sample rate.
	BlockSize int

	// Optional logger. Defaults to slog.Default().
	Logger *slog.Logger
}

func NewController(params ControllerParams) *Controller {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		openOutput:   params.OpenOutput,
		onHandoff:    params.OnHandoff,
		joinTimeout:  cmp.Or(params.JoinTimeout, defaultJoinTimeout),
		pollInterval: cmp.Or(params.PollInterval, defaultPollInterval),
		blockSize:    params.BlockSize,
		logger:       logger,
		interrupt:    NewSignal(),
		stop:         NewSignal(),
		finished:     NewSignal(),
	}
}

type worker struct {
	job  Job
	done chan struct{}
}

// IsPlaying reports whether a job is loaded, paused or not. It is safe
// to call from the capture callback.
func (c *Controller) IsPlaying() bool {
	return c.playing.Load()
}

// Interrupt pauses playback. Idempotent.
func (c *Controller) Interrupt() {
	c.interrupt.Set()
}

// Resume lifts an interrupt so a paused worker restarts its stream.
func (c *Controller) Resume() {
	c.interrupt.Clear()
}

// Play replaces any current track with job. The previous worker is
// stopped and joined first, without a cleanup handoff of its own; a
// worker that does not exit within the join timeout is abandoned.
func (c *Controller) Play(job Job) {
	c.mu.Lock()
	prev := c.current
	if prev != nil {
		// Suppress the replaced worker's handoff.
		c.cleanupScheduled = true
	}
	c.mu.Unlock()

	if prev != nil {
		c.stop.Set()
		c.interrupt.Set()
		select {
		case <-prev.done:
		case <-time.After(c.joinTimeout):
			c.logger.Warn("music worker did not exit in time; abandoning it",
				"timeout", c.joinTimeout)
		}
	}

	c.stop.Clear()
	c.interrupt.Clear()
	c.finished.Clear()

	w := &worker{job: job, done: make(chan struct{})}
	c.mu.Lock()
	c.current = w
	c.cleanupScheduled = false
	c.mu.Unlock()
	c.playing.Store(true)

	go c.run(w)
}

// Stop ends playback and waits for the worker to exit. If the worker
// stays silent past the join timeout, the cleanup handoff is forced so
// the agent never hangs on a stuck device.
func (c *Controller) Stop() {
	c.mu.Lock()
	w := c.current
	c.mu.Unlock()
	if w == nil {
		return
	}

	c.stop.Set()
	c.interrupt.Set()

	select {
	case <-w.done:
	case <-time.After(c.joinTimeout):
		c.logger.Warn("music worker did not stop in time; forcing cleanup",
			"timeout", c.joinTimeout)
		c.deliver(w, false)
	}
}

// deliver performs the single cleanup handoff for w. Calls for a worker
// that was replaced, or whose handoff already ran, are no-ops.
func (c *Controller) deliver(w *worker, interrupted bool) {
	c.mu.Lock()
	if c.current != w || c.cleanupScheduled {
		c.mu.Unlock()
		return
	}
	c.cleanupScheduled = true
	c.current = nil
	c.playing.Store(false)
	cb := c.onHandoff
	c.mu.Unlock()

	if cb != nil {
		cb(interrupted)
	}
}

func (c *Controller) isZombie(w *worker) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != w
}

func (c *Controller) run(w *worker) {
	defer close(w.done)

	job := w.job
	blockSize := c.blockSize
	if blockSize <= 0 {
		blockSize = job.SampleRate / 20
	}

	var pos atomic.Int64
	stream, err := c.openOutput(job.SampleRate, blockSize, func(out []int16) {
		p := int(pos.Load())
		n := copy(out, job.PCM[p:])
		clear(out[n:])
		pos.Store(int64(p + n))
		if p+n >= len(job.PCM) {
			c.finished.Set()
		}
	})
	if err != nil {
		c.logger.Error("failed to open music render stream", "err", err)
		c.deliver(w, true)
		return
	}
	defer func() {
		if e := stream.Close(); e != nil {
			c.logger.Warn("error closing music render stream", "err", e)
		}
	}()

	if err := stream.Start(); err != nil {
		c.logger.Error("failed to start music render stream", "err", err)
		c.deliver(w, true)
		return
	}
	c.logger.Info("music playback started",
		"title", job.Title, "duration", job.Duration())

	paused := false
	natural := false
	for {
		if c.stop.WaitTimeout(c.pollInterval) {
			break
		}
		if c.finished.IsSet() {
			natural = true
			break
		}
		if c.isZombie(w) {
			return
		}
		switch {
		case !paused && c.interrupt.IsSet():
			if err := stream.Stop(); err != nil {
				c.logger.Error("failed to pause music render stream", "err", err)
				c.deliver(w, true)
				return
			}
			paused = true
			c.logger.Info("music playback paused")
		case paused && !c.interrupt.IsSet():
			if err := stream.Start(); err != nil {
				c.logger.Error("failed to resume music render stream", "err", err)
				c.deliver(w, true)
				return
			}
			paused = false
			c.logger.Info("music playback resumed")
		}
	}

	if !paused {
		if err := stream.Stop(); err != nil {
			c.logger.Warn("error stopping music render stream", "err", err)
		}
	}

	// An interrupt that is not a stop and not a natural finish means a
	// wake word cut the music and the user carried on with the agent.
	final := c.interrupt.IsSet() && !natural && !c.stop.IsSet()
	c.logger.Info("music playback finished",
		"title", job.Title, "natural", natural, "interrupted", final)
	c.deliver(w, final)
}
