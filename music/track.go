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

package music

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Job is a fully decoded track ready for playback: mono 16-bit PCM at
// its native sample rate, plus the metadata announced to the user.
type Job struct {
	PCM        []int16
	SampleRate int
	Title      string
	Artist     string
}

// Duration returns the playback length of the decoded audio.
func (j Job) Duration() time.Duration {
	if j.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(j.PCM)) * time.Second / time.Duration(j.SampleRate)
}

// Download outcome statuses reported by a TrackSource.
const (
	DownloadStatusSuccess = "success"
	DownloadStatusTimeout = "timeout"
	DownloadStatusError   = "error"
)

// DownloadResult describes the outcome of fetching a track. On success
// FilePath points to a local WAV file; otherwise Message explains what
// went wrong.
type DownloadResult struct {
	Status   string
	FilePath string
	Title    string
	Artist   string
	Message  string
}

// A TrackSource resolves a free-form search query to a local audio
// file. Implementations are expected to honor ctx cancellation; the
// play tool bounds each fetch with a timeout.
type TrackSource interface {
	Fetch(ctx context.Context, query string) (DownloadResult, error)
}

// LoadWAVTrack decodes a WAV file into a playback job, downmixing
// multi-channel audio to mono and rescaling samples to 16 bits.
func LoadWAVTrack(path string) (_ Job, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("error opening audio file: %w", err)
	}
	defer func() {
		if e := f.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing audio file: %w", e))
		}
	}()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return Job{}, fmt.Errorf("invalid WAV file %q", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Job{}, fmt.Errorf("error decoding WAV file: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return Job{}, fmt.Errorf("WAV file %q has no channel information", path)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	shift := 0
	if buf.SourceBitDepth > 16 {
		shift = buf.SourceBitDepth - 16
	}

	pcm := make([]int16, frames)
	for i := range frames {
		sum := 0
		for ch := range channels {
			sum += buf.Data[i*channels+ch]
		}
		sample := (sum / channels) >> shift
		if sample > 32767 {
			sample = 32767
		} else if sample < -32768 {
			sample = -32768
		}
		pcm[i] = int16(sample)
	}

	return Job{PCM: pcm, SampleRate: buf.Format.SampleRate}, nil
}

func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
