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
	"errors"
	"sync"

	"github.com/nlpodyssey/voice-agent-go/device"
)

// outputPlayer feeds queued assistant audio to a render stream. The
// render callback copies whatever is queued and zero-fills the rest, so
// it holds the lock for O(block) and never waits for the network.
type outputPlayer struct {
	open       device.OutputOpener
	sampleRate int
	blockSize  int
	stream     device.Stream

	mu     sync.Mutex
	chunks [][]int16
	offset int // consumed samples of chunks[0]
	queued int
}

func newOutputPlayer(open device.OutputOpener, sampleRate, blockSize int) *outputPlayer {
	return &outputPlayer{open: open, sampleRate: sampleRate, blockSize: blockSize}
}

func (p *outputPlayer) Start() error {
	stream, err := p.open(p.sampleRate, p.blockSize, p.render)
	if err != nil {
		return DeviceErrorf("failed to open speaker stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return errors.Join(
			DeviceErrorf("failed to start speaker stream: %w", err),
			stream.Close(),
		)
	}
	p.stream = stream
	return nil
}

func (p *outputPlayer) Close() error {
	if p.stream == nil {
		return nil
	}
	err := errors.Join(p.stream.Stop(), p.stream.Close())
	p.stream = nil
	return err
}

// AddAudio queues one decoded chunk. The player takes ownership of pcm.
func (p *outputPlayer) AddAudio(pcm []int16) {
	if len(pcm) == 0 {
		return
	}
	p.mu.Lock()
	p.chunks = append(p.chunks, pcm)
	p.queued += len(pcm)
	p.mu.Unlock()
}

// Reset discards everything queued. Called when a new assistant item
// starts and on barge-in, so stale audio never plays over fresh audio.
func (p *outputPlayer) Reset() {
	p.mu.Lock()
	p.chunks = nil
	p.offset = 0
	p.queued = 0
	p.mu.Unlock()
}

// QueuedSamples reports how much audio is waiting to be rendered.
func (p *outputPlayer) QueuedSamples() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

func (p *outputPlayer) render(out []int16) {
	p.mu.Lock()
	n := 0
	for n < len(out) && len(p.chunks) > 0 {
		head := p.chunks[0]
		c := copy(out[n:], head[p.offset:])
		n += c
		p.offset += c
		p.queued -= c
		if p.offset >= len(head) {
			p.chunks = p.chunks[1:]
			p.offset = 0
		}
	}
	p.mu.Unlock()

	clear(out[n:])
}
