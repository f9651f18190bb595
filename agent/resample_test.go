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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResamplerIdentity(t *testing.T) {
	r := newResampler(16000, 16000)
	in := []int16{1, 2, 3, 4}
	assert.Equal(t, in, r.resample(in))
}

func TestResamplerUpsamplesRatio(t *testing.T) {
	r := newResampler(16000, 24000)
	out := r.resample(make([]int16, 1600))
	// 100ms of input must produce roughly 100ms of output.
	assert.InDelta(t, 2400, len(out), 2)
}

func TestResamplerDownsamplesRatio(t *testing.T) {
	r := newResampler(24000, 16000)
	out := r.resample(make([]int16, 2400))
	assert.InDelta(t, 1600, len(out), 2)
}

func TestResamplerInterpolatesLinearly(t *testing.T) {
	r := newResampler(16000, 32000)
	out := r.resample([]int16{0, 100, 200})
	require.GreaterOrEqual(t, len(out), 5)
	assert.Equal(t, []int16{0, 50, 100, 150, 200}, out[:5])
}

func TestResamplerChunkingIsSeamless(t *testing.T) {
	signal := make([]int16, 1024)
	for i := range signal {
		signal[i] = int16(1000 * math.Sin(float64(i)/10))
	}

	whole := newResampler(16000, 24000).resample(signal)

	chunked := newResampler(16000, 24000)
	var out []int16
	for start := 0; start < len(signal); start += 160 {
		end := min(start+160, len(signal))
		out = append(out, chunked.resample(signal[start:end])...)
	}

	// Splitting the stream must not change the result beyond the last
	// boundary samples still held back in the carry state.
	limit := min(len(whole), len(out))
	assert.Greater(t, limit, 1400)
	assert.Equal(t, whole[:limit], out[:limit])
}

func TestResamplerEmptyInput(t *testing.T) {
	r := newResampler(16000, 24000)
	assert.Nil(t, r.resample(nil))
}
