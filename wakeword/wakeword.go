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

// Package wakeword defines the boundary to a local keyword classifier.
// The agent owns frame-length alignment; the detector owns acoustic
// matching only.
package wakeword

// NoDetection is returned by Detector.Process when the frame contains no
// keyword.
const NoDetection = -1

// Detector classifies fixed-length PCM frames. Process must be
// deterministic per frame and must not buffer audio across calls; it runs
// inside the capture callback and must complete in sub-frame time.
type Detector interface {
	// FrameLength returns the exact number of samples Process expects.
	FrameLength() int

	// SampleRate returns the sample rate the detector was trained for.
	SampleRate() int

	// Process evaluates one frame and returns the index of the detected
	// keyword, or NoDetection.
	Process(frame []int16) (int, error)

	// Close releases the detector's resources.
	Close() error
}
