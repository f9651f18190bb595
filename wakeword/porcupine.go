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

package wakeword

import (
	"fmt"

	porcupine "github.com/Picovoice/porcupine/binding/go/v3"
)

// PorcupineParams configures a Picovoice Porcupine detector.
type PorcupineParams struct {
	// AccessKey is the Picovoice access key. Required.
	AccessKey string

	// KeywordPaths are paths to the .ppn keyword files. Required.
	KeywordPaths []string

	// Optional path to a non-default acoustic model file.
	ModelPath string

	// Optional per-keyword sensitivities in [0, 1].
	// Defaults to 0.5 for every keyword.
	Sensitivities []float32
}

// Porcupine is a Detector backed by the Picovoice Porcupine engine.
type Porcupine struct {
	engine porcupine.Porcupine
}

// NewPorcupine initializes the Porcupine engine.
func NewPorcupine(params PorcupineParams) (*Porcupine, error) {
	if params.AccessKey == "" {
		return nil, fmt.Errorf("porcupine access key is required")
	}
	if len(params.KeywordPaths) == 0 {
		return nil, fmt.Errorf("porcupine keyword paths are required")
	}

	sensitivities := params.Sensitivities
	if len(sensitivities) == 0 {
		sensitivities = make([]float32, len(params.KeywordPaths))
		for i := range sensitivities {
			sensitivities[i] = 0.5
		}
	}

	d := &Porcupine{
		engine: porcupine.Porcupine{
			AccessKey:     params.AccessKey,
			ModelPath:     params.ModelPath,
			KeywordPaths:  params.KeywordPaths,
			Sensitivities: sensitivities,
		},
	}
	if err := d.engine.Init(); err != nil {
		return nil, fmt.Errorf("error initializing porcupine: %w", err)
	}
	return d, nil
}

func (d *Porcupine) FrameLength() int { return int(porcupine.FrameLength) }

func (d *Porcupine) SampleRate() int { return int(porcupine.SampleRate) }

func (d *Porcupine) Process(frame []int16) (int, error) {
	index, err := d.engine.Process(frame)
	if err != nil {
		return NoDetection, fmt.Errorf("porcupine processing error: %w", err)
	}
	return index, nil
}

func (d *Porcupine) Close() error {
	return d.engine.Delete()
}
