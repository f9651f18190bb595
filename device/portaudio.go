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

package device

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// UsingPortaudio initializes portaudio for the duration of fn.
func UsingPortaudio(fn func() error) (err error) {
	if err = portaudio.Initialize(); err != nil {
		return fmt.Errorf("error initializing portaudio: %w", err)
	}
	defer func() {
		if e := portaudio.Terminate(); e != nil {
			err = errors.Join(err, fmt.Errorf("error terminating portaudio: %w", e))
		}
	}()
	return fn()
}

type portaudioStream struct {
	stream *portaudio.Stream
}

func (s portaudioStream) Start() error { return s.stream.Start() }
func (s portaudioStream) Stop() error  { return s.stream.Stop() }
func (s portaudioStream) Close() error { return s.stream.Close() }

// OpenPortaudioInput opens a default-device capture stream. It satisfies
// InputOpener.
func OpenPortaudioInput(sampleRate, blockSize int, fn CaptureFunc) (Stream, error) {
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), blockSize, func(in []int16) {
		fn(in)
	})
	if err != nil {
		return nil, fmt.Errorf("error opening capture stream: %w", err)
	}
	return portaudioStream{stream: stream}, nil
}

// OpenPortaudioOutput opens a default-device render stream. It satisfies
// OutputOpener.
func OpenPortaudioOutput(sampleRate, blockSize int, fn RenderFunc) (Stream, error) {
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), blockSize, func(out []int16) {
		fn(out)
	})
	if err != nil {
		return nil, fmt.Errorf("error opening render stream: %w", err)
	}
	return portaudioStream{stream: stream}, nil
}
