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

package agent

import (
	"sync"
	"time"
)

// Mode is the externally visible listening state of the agent.
type Mode int

const (
	// ModeWaitingForWakeword gates the microphone behind the wake-word
	// detector; no audio leaves the device.
	ModeWaitingForWakeword Mode = iota

	// ModeConfirmPending forwards audio while waiting for the user to
	// actually speak after a wake word, bounded by a deadline.
	ModeConfirmPending

	// ModeStreaming forwards audio during an active user utterance.
	ModeStreaming

	// ModeMusicPlaying is reported while music plays and no wake word
	// flow is in progress. The gate keeps running underneath it.
	ModeMusicPlaying
)

func (m Mode) String() string {
	switch m {
	case ModeWaitingForWakeword:
		return "waiting-for-wakeword"
	case ModeConfirmPending:
		return "confirm-pending"
	case ModeStreaming:
		return "streaming"
	case ModeMusicPlaying:
		return "music-playing"
	default:
		return "unknown"
	}
}

// ConfirmKind distinguishes what a pending confirmation window follows.
type ConfirmKind int

const (
	ConfirmNone ConfirmKind = iota

	// ConfirmPlainWakeword: wake word heard while no music was playing.
	ConfirmPlainWakeword

	// ConfirmMusicInterrupt: wake word paused the music; if the window
	// expires without speech, playback resumes.
	ConfirmMusicInterrupt
)

func (k ConfirmKind) String() string {
	switch k {
	case ConfirmPlainWakeword:
		return "wakeword"
	case ConfirmMusicInterrupt:
		return "music-interrupt"
	default:
		return "none"
	}
}

// modeController is the single writer of the listening state. The
// capture callback and the scheduler goroutine both drive it, so every
// transition happens under its lock and stays O(1).
type modeController struct {
	mu           sync.Mutex
	mode         Mode // never ModeMusicPlaying internally
	kind         ConfirmKind
	deadline     time.Time
	musicPlaying func() bool
}

func newModeController(musicPlaying func() bool) *modeController {
	return &modeController{mode: ModeWaitingForWakeword, musicPlaying: musicPlaying}
}

// Mode reports the external mode, deriving ModeMusicPlaying when the
// agent is idle but a track is loaded.
func (c *modeController) Mode() Mode {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()

	if mode == ModeWaitingForWakeword && c.musicPlaying != nil && c.musicPlaying() {
		return ModeMusicPlaying
	}
	return mode
}

// GateActive reports whether capture audio should feed the detector.
func (c *modeController) GateActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == ModeWaitingForWakeword
}

// Forwarding reports whether capture audio should reach the session.
func (c *modeController) Forwarding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == ModeConfirmPending || c.mode == ModeStreaming
}

// BeginConfirm arms a confirmation window. A previous pending window is
// replaced, so at most one deadline is outstanding.
func (c *modeController) BeginConfirm(kind ConfirmKind, now time.Time, window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeConfirmPending
	c.kind = kind
	c.deadline = now.Add(window)
}

// CheckDeadline expires a pending confirmation window. It reports
// whether the window expired just now and, if so, of which kind it was.
func (c *modeController) CheckDeadline(now time.Time) (expired bool, kind ConfirmKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeConfirmPending || now.Before(c.deadline) {
		return false, ConfirmNone
	}
	kind = c.kind
	c.mode = ModeWaitingForWakeword
	c.kind = ConfirmNone
	return true, kind
}

// OnSpeechStarted confirms a pending wake word: the user is talking.
func (c *modeController) OnSpeechStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeConfirmPending {
		c.mode = ModeStreaming
		c.kind = ConfirmNone
	}
}

// OnSpeechStopped closes an utterance; the gate takes over again.
func (c *modeController) OnSpeechStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeStreaming {
		c.mode = ModeWaitingForWakeword
	}
}

// ReturnToIdle drops back to gating unless a confirmation window is
// still pending (a response finishing must not cancel it).
func (c *modeController) ReturnToIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeConfirmPending {
		c.mode = ModeWaitingForWakeword
	}
}

// Reset unconditionally returns to gating.
func (c *modeController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeWaitingForWakeword
	c.kind = ConfirmNone
}
