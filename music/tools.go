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
	"fmt"
	"time"

	"github.com/nlpodyssey/voice-agent-go/tools"
)

const downloadTimeout = 10 * time.Second

type playArgs struct {
	Search string `json:"search" jsonschema_description:"Song to play, e.g. 'song title by artist'"`
}

// PlayTool builds the play_music function tool. The handler fetches the
// requested track from source, decodes it and starts playback. On
// success no model reply is needed; fetch timeouts and failures are
// reported back so the model can tell the user.
func PlayTool(ctrl *Controller, source TrackSource) tools.Function {
	return tools.NewFunctionTool("play_music",
		"Search for a song and play it through the speakers.",
		func(ctx context.Context, args playArgs) (tools.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
			defer cancel()

			res, err := source.Fetch(ctx, args.Search)
			if err != nil {
				return tools.ErrorResult("failed to fetch %q: %v", args.Search, err), nil
			}
			switch res.Status {
			case DownloadStatusSuccess:
			case DownloadStatusTimeout:
				return tools.ErrorResult("download of %q timed out; it may become available shortly, try again", args.Search), nil
			default:
				return tools.ErrorResult("could not get %q: %s", args.Search, res.Message), nil
			}

			job, err := LoadWAVTrack(res.FilePath)
			if err != nil {
				return tools.ErrorResult("failed to decode downloaded track: %v", err), nil
			}
			job.Title = res.Title
			job.Artist = res.Artist

			ctrl.Play(job)

			return tools.Result{
				Status: tools.StatusSuccess,
				Message: fmt.Sprintf("Starting playback of '%s' by %s. Duration %s",
					job.Title, job.Artist, formatDuration(job.Duration())),
				NoResponseNeeded: true,
			}, nil
		})
}

// StopTool builds the stop_music function tool.
func StopTool(ctrl *Controller) tools.Function {
	return tools.NewFunctionTool("stop_music",
		"Stop the music that is currently playing.",
		func(ctx context.Context, _ struct{}) (tools.Result, error) {
			ctrl.Stop()
			return tools.Result{
				Status:           tools.StatusSuccess,
				Message:          "Music stopped.",
				NoResponseNeeded: true,
			}, nil
		})
}
