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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestModeControllerInitialState(t *testing.T) {
	c := newModeController(nil)
	assert.Equal(t, ModeWaitingForWakeword, c.Mode())
	assert.True(t, c.GateActive())
	assert.False(t, c.Forwarding())
}

func TestModeControllerConfirmFlow(t *testing.T) {
	c := newModeController(nil)
	now := time.Now()

	c.BeginConfirm(ConfirmPlainWakeword, now, 5*time.Second)
	assert.Equal(t, ModeConfirmPending, c.Mode())
	assert.True(t, c.Forwarding())
	assert.False(t, c.GateActive())

	c.OnSpeechStarted()
	assert.Equal(t, ModeStreaming, c.Mode())
	assert.True(t, c.Forwarding())

	c.OnSpeechStopped()
	assert.Equal(t, ModeWaitingForWakeword, c.Mode())
	assert.True(t, c.GateActive())
}

func TestModeControllerDeadlineExpiry(t *testing.T) {
	c := newModeController(nil)
	now := time.Now()

	c.BeginConfirm(ConfirmMusicInterrupt, now, 5*time.Second)

	expired, kind := c.CheckDeadline(now.Add(4 * time.Second))
	assert.False(t, expired)
	assert.Equal(t, ConfirmNone, kind)
	assert.Equal(t, ModeConfirmPending, c.Mode())

	expired, kind = c.CheckDeadline(now.Add(5 * time.Second))
	assert.True(t, expired)
	assert.Equal(t, ConfirmMusicInterrupt, kind)
	assert.Equal(t, ModeWaitingForWakeword, c.Mode())

	// Only one expiry per window.
	expired, _ = c.CheckDeadline(now.Add(6 * time.Second))
	assert.False(t, expired)
}

func TestModeControllerSpeechStartClearsDeadline(t *testing.T) {
	c := newModeController(nil)
	now := time.Now()

	c.BeginConfirm(ConfirmPlainWakeword, now, 5*time.Second)
	c.OnSpeechStarted()

	expired, _ := c.CheckDeadline(now.Add(time.Minute))
	assert.False(t, expired)
	assert.Equal(t, ModeStreaming, c.Mode())
}

func TestModeControllerNewConfirmReplacesPending(t *testing.T) {
	c := newModeController(nil)
	now := time.Now()

	c.BeginConfirm(ConfirmPlainWakeword, now, 5*time.Second)
	c.BeginConfirm(ConfirmMusicInterrupt, now.Add(4*time.Second), 5*time.Second)

	// Original deadline has passed, but only the latest window counts.
	expired, _ := c.CheckDeadline(now.Add(6 * time.Second))
	assert.False(t, expired)

	expired, kind := c.CheckDeadline(now.Add(10 * time.Second))
	assert.True(t, expired)
	assert.Equal(t, ConfirmMusicInterrupt, kind)
}

func TestModeControllerReturnToIdlePreservesConfirm(t *testing.T) {
	c := newModeController(nil)
	now := time.Now()

	c.BeginConfirm(ConfirmPlainWakeword, now, 5*time.Second)
	c.ReturnToIdle()
	assert.Equal(t, ModeConfirmPending, c.Mode())

	c.OnSpeechStarted()
	c.ReturnToIdle()
	assert.Equal(t, ModeWaitingForWakeword, c.Mode())
}

func TestModeControllerReportsMusicPlaying(t *testing.T) {
	playing := false
	c := newModeController(func() bool { return playing })

	assert.Equal(t, ModeWaitingForWakeword, c.Mode())

	playing = true
	assert.Equal(t, ModeMusicPlaying, c.Mode())

	// The gate keeps running while music plays.
	assert.True(t, c.GateActive())

	// Wake word flows take precedence over the derived mode.
	c.BeginConfirm(ConfirmMusicInterrupt, time.Now(), 5*time.Second)
	assert.Equal(t, ModeConfirmPending, c.Mode())
}

func TestModeControllerReset(t *testing.T) {
	c := newModeController(nil)
	c.BeginConfirm(ConfirmPlainWakeword, time.Now(), 5*time.Second)
	c.Reset()
	assert.Equal(t, ModeWaitingForWakeword, c.Mode())

	expired, _ := c.CheckDeadline(time.Now().Add(time.Minute))
	assert.False(t, expired)
}
