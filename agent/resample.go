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

import "math"

// resampler converts a mono int16 stream between sample rates with
// linear interpolation. It carries the fractional read position and the
// last input sample across calls, so feeding a stream chunk by chunk
// yields the same output as feeding it whole.
//
// Not safe for concurrent use; the capture callback is its only caller.
type resampler struct {
	srcRate int
	dstRate int

	// pos is the source-index position of the next output sample,
	// relative to the start of the next input chunk. It lies in [-1, 0)
	// when the next output interpolates across the chunk boundary.
	pos    float64
	last   int16
	primed bool
}

func newResampler(srcRate, dstRate int) *resampler {
	return &resampler{srcRate: srcRate, dstRate: dstRate}
}

func (r *resampler) resample(in []int16) []int16 {
	if len(in) == 0 {
		return nil
	}
	if r.srcRate == r.dstRate {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}

	step := float64(r.srcRate) / float64(r.dstRate)
	out := make([]int16, 0, int(float64(len(in))/step)+2)

	pos := r.pos
	for {
		i := int(math.Floor(pos))
		frac := pos - float64(i)
		if i >= len(in)-1 && !(i == len(in)-1 && frac == 0) {
			break
		}

		var s0 float64
		switch {
		case i >= 0:
			s0 = float64(in[i])
		case r.primed:
			s0 = float64(r.last)
		default:
			s0 = float64(in[0])
		}

		s1 := s0
		if j := i + 1; j >= 0 && j < len(in) {
			s1 = float64(in[j])
		}

		out = append(out, int16(math.Round(s0+(s1-s0)*frac)))
		pos += step
	}

	r.pos = pos - float64(len(in))
	r.last = in[len(in)-1]
	r.primed = true
	return out
}
