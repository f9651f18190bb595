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
	"sync/atomic"
	"time"

	"github.com/nlpodyssey/voice-agent-go/wakeword"
)

// inputPipeline is the capture callback. Depending on the mode it
// either feeds the wake-word detector or resamples and forwards audio
// toward the session. It must never block: cross-thread handoff is a
// non-blocking queue put, and dropped chunks are only counted.
type inputPipeline struct {
	detector           wakeword.Detector
	music              MusicControl // may be nil
	mode               *modeController
	res                *resampler
	forward            func(pcm []int16) bool
	confirmWindow      time.Duration
	musicConfirmWindow time.Duration

	// gateBuf reframes device blocks into detector-sized frames.
	gateBuf []int16

	speaking  atomic.Bool
	utterMu   sync.Mutex
	utterance []int16

	dropped atomic.Int64
}

func newInputPipeline(
	detector wakeword.Detector,
	music MusicControl,
	mode *modeController,
	captureRate, sessionRate int,
	confirmWindow, musicConfirmWindow time.Duration,
	forward func(pcm []int16) bool,
) *inputPipeline {
	return &inputPipeline{
		detector:           detector,
		music:              music,
		mode:               mode,
		res:                newResampler(captureRate, sessionRate),
		forward:            forward,
		confirmWindow:      confirmWindow,
		musicConfirmWindow: musicConfirmWindow,
	}
}

// process handles one capture block. It runs on the device callback
// thread.
func (p *inputPipeline) process(in []int16) {
	now := time.Now()

	if expired, kind := p.mode.CheckDeadline(now); expired {
		Logger().Info("confirmation window expired without speech", "kind", kind.String())
		if kind == ConfirmMusicInterrupt && p.music != nil {
			p.music.Resume()
		}
	}

	if p.mode.GateActive() {
		p.runGate(in, now)
		return
	}

	out := p.res.resample(in)
	if len(out) == 0 {
		return
	}
	if !p.forward(out) {
		p.dropped.Add(1)
	}

	// Retained at the session rate so the utterance can be replayed
	// into a fresh session as-is.
	if p.speaking.Load() {
		p.utterMu.Lock()
		p.utterance = append(p.utterance, out...)
		p.utterMu.Unlock()
	}
}

func (p *inputPipeline) runGate(in []int16, now time.Time) {
	p.gateBuf = append(p.gateBuf, in...)
	frameLength := p.detector.FrameLength()

	consumed := 0
	for len(p.gateBuf)-consumed >= frameLength {
		frame := p.gateBuf[consumed : consumed+frameLength]
		consumed += frameLength

		index, err := p.detector.Process(frame)
		if err != nil {
			Logger().Warn("wake word detection error", "err", err)
			continue
		}
		if index == wakeword.NoDetection {
			continue
		}

		p.onWakeWord(now)
		p.gateBuf = p.gateBuf[:0]
		return
	}

	remaining := copy(p.gateBuf, p.gateBuf[consumed:])
	p.gateBuf = p.gateBuf[:remaining]
}

func (p *inputPipeline) onWakeWord(now time.Time) {
	if p.music != nil && p.music.IsPlaying() {
		// Pause the music before the window is armed, so no audio plays
		// over the user's command.
		p.music.Interrupt()
		p.mode.BeginConfirm(ConfirmMusicInterrupt, now, p.musicConfirmWindow)
		Logger().Info("wake word detected; music paused, awaiting command")
		return
	}
	p.mode.BeginConfirm(ConfirmPlainWakeword, now, p.confirmWindow)
	Logger().Info("wake word detected; awaiting command")
}

// onSpeechStarted arms utterance retention. Called by the scheduler
// when the remote VAD reports speech.
func (p *inputPipeline) onSpeechStarted() {
	p.mode.OnSpeechStarted()
	p.utterMu.Lock()
	p.utterance = p.utterance[:0]
	p.utterMu.Unlock()
	p.speaking.Store(true)
}

// onSpeechStopped closes the utterance and returns its session-rate PCM.
func (p *inputPipeline) onSpeechStopped() []int16 {
	p.speaking.Store(false)
	p.mode.OnSpeechStopped()

	p.utterMu.Lock()
	defer p.utterMu.Unlock()
	pcm := make([]int16, len(p.utterance))
	copy(pcm, p.utterance)
	p.utterance = p.utterance[:0]
	return pcm
}

// DroppedChunks reports how many resampled chunks were discarded
// because the loop queue was full.
func (p *inputPipeline) DroppedChunks() int64 {
	return p.dropped.Load()
}
