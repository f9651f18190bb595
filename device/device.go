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

// Package device abstracts callback-driven audio capture and render
// streams over mono 16-bit PCM. The portaudio implementation is the one
// used on real hardware; tests substitute their own openers.
package device

// Stream is a started or startable audio stream. Stop pauses the device
// without releasing it; a stopped stream may be started again. Close
// releases the device.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// CaptureFunc receives one block of interleaved mono samples per device
// period. It runs on the device's callback thread and must never block.
type CaptureFunc func(in []int16)

// RenderFunc fills one block of interleaved mono samples per device
// period. It runs on the device's callback thread and must never block.
type RenderFunc func(out []int16)

// InputOpener opens a capture stream delivering blockSize samples per
// callback at the given sample rate. The returned stream is not started.
type InputOpener func(sampleRate, blockSize int, fn CaptureFunc) (Stream, error)

// OutputOpener opens a render stream requesting blockSize samples per
// callback at the given sample rate. The returned stream is not started.
type OutputOpener func(sampleRate, blockSize int, fn RenderFunc) (Stream, error)
