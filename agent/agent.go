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

// Package agent implements a wake-word-gated speech-to-speech voice
// agent on top of the realtime API. Captured audio stays on the device
// until the wake word opens a bounded confirmation window; confirmed
// speech streams to the session, assistant audio streams back, and
// function calls are bridged to registered tools. Conversation history
// is persisted so an expired session can be rebuilt transparently.
package agent

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nlpodyssey/voice-agent-go/asyncqueue"
	"github.com/nlpodyssey/voice-agent-go/device"
	"github.com/nlpodyssey/voice-agent-go/history"
	"github.com/nlpodyssey/voice-agent-go/tools"
	"github.com/nlpodyssey/voice-agent-go/wakeword"
)

const (
	defaultBaseURL           = "wss://api.openai.com/v1/realtime"
	defaultModel             = "gpt-realtime"
	defaultVoice             = "alloy"
	defaultTemperature       = 0.8
	defaultSessionSampleRate = 24000
	defaultCaptureBlockSize  = 512
	defaultConfirmWindow     = 5 * time.Second
	defaultQueueCapacity     = 256
	defaultReconnectAttempts = 3

	loopPollInterval = 250 * time.Millisecond

	// Notice sent to the session after playback ends early, so the
	// model knows why the music is gone.
	musicInterruptedNotice = "[SYSTEM] Music playback was interrupted."
)

// MusicControl is what the agent needs from a playback controller.
// *music.Controller satisfies it.
type MusicControl interface {
	IsPlaying() bool
	Interrupt()
	Resume()
	Stop()
}

type Params struct {
	// APIKey authenticates against the realtime endpoint. Required.
	APIKey string

	// Optional model name. Defaults to "gpt-realtime".
	Model string

	// Optional websocket endpoint. Defaults to the OpenAI realtime URL.
	BaseURL string

	// Instructions is the system prompt for the session.
	Instructions string

	// Optional voice name. Defaults to "alloy".
	Voice string

	// Optional sampling temperature. Defaults to 0.8.
	Temperature float64

	// Detector is the wake-word gate. Required.
	Detector wakeword.Detector

	// Optional music playback controller. Without it, wake words always
	// open a plain confirmation window.
	Music MusicControl

	// Optional conversation history store. Without it, nothing is
	// persisted and expired sessions restart from scratch.
	History history.Store

	// OpenInput opens the microphone stream. Required.
	OpenInput device.InputOpener

	// OpenOutput opens the speaker stream. Required.
	OpenOutput device.OutputOpener

	// Optional capture block size in samples. Defaults to 512.
	CaptureBlockSize int

	// Optional session audio rate. Defaults to 24000.
	SessionSampleRate int

	// Optional confirmation window after a plain wake word. Defaults to 5s.
	ConfirmWindow time.Duration

	// Optional confirmation window after a wake word paused the music.
	// Defaults to 5s.
	MusicConfirmWindow time.Duration

	// DisableReconnect turns the agent's reconnection off; any session
	// failure then ends Run. Session expiry still reconnects.
	DisableReconnect bool

	// Optional cap on consecutive failed reconnection attempts.
	// Defaults to 3. Expiry-driven reconnects reset the counter.
	MaxReconnectAttempts int

	// Optional capacity of the loop queue. Defaults to 256.
	QueueCapacity int

	// OnTranscript is called with each finished assistant transcript.
	// Optional; runs on the scheduler goroutine, keep it fast.
	OnTranscript func(text string)
}

// VoiceAgent ties the pipeline, session, tools and music together.
// Create it with New, register tools, then call Run.
type VoiceAgent struct {
	params   Params
	endpoint string

	mode     *modeController
	pipeline *inputPipeline
	player   *outputPlayer
	loop     *asyncqueue.Queue[loopItem]

	toolsMu sync.Mutex
	tools   map[string]tools.Function

	running atomic.Bool

	// Scheduler-goroutine state; untouched elsewhere.
	responding         bool
	audioItemID        string
	transcript         strings.Builder
	finalTranscript    string
	transcriptConsumed bool
}

func New(params Params) (*VoiceAgent, error) {
	if params.APIKey == "" {
		return nil, NewUserError("APIKey is required")
	}
	if params.Detector == nil {
		return nil, NewUserError("Detector is required")
	}
	if params.OpenInput == nil || params.OpenOutput == nil {
		return nil, NewUserError("OpenInput and OpenOutput are required")
	}

	params.Model = cmp.Or(params.Model, defaultModel)
	params.BaseURL = cmp.Or(params.BaseURL, defaultBaseURL)
	params.Voice = cmp.Or(params.Voice, defaultVoice)
	params.Temperature = cmp.Or(params.Temperature, defaultTemperature)
	params.CaptureBlockSize = cmp.Or(params.CaptureBlockSize, defaultCaptureBlockSize)
	params.SessionSampleRate = cmp.Or(params.SessionSampleRate, defaultSessionSampleRate)
	params.ConfirmWindow = cmp.Or(params.ConfirmWindow, defaultConfirmWindow)
	params.MusicConfirmWindow = cmp.Or(params.MusicConfirmWindow, defaultConfirmWindow)
	params.MaxReconnectAttempts = cmp.Or(params.MaxReconnectAttempts, defaultReconnectAttempts)
	params.QueueCapacity = cmp.Or(params.QueueCapacity, defaultQueueCapacity)

	a := &VoiceAgent{
		params:   params,
		endpoint: fmt.Sprintf("%s?model=%s", params.BaseURL, url.QueryEscape(params.Model)),
		loop:     asyncqueue.NewBounded[loopItem](params.QueueCapacity),
		tools:    make(map[string]tools.Function),
	}

	var musicPlaying func() bool
	if params.Music != nil {
		musicPlaying = params.Music.IsPlaying
	}
	a.mode = newModeController(musicPlaying)

	a.pipeline = newInputPipeline(
		params.Detector, params.Music, a.mode,
		params.Detector.SampleRate(), params.SessionSampleRate,
		params.ConfirmWindow, params.MusicConfirmWindow,
		func(pcm []int16) bool { return a.loop.TryPut(outboundAudioItem{pcm: pcm}) },
	)
	a.player = newOutputPlayer(params.OpenOutput, params.SessionSampleRate, params.CaptureBlockSize)
	return a, nil
}

// Mode reports the current listening state.
func (a *VoiceAgent) Mode() Mode {
	return a.mode.Mode()
}

// SendText injects a user text turn, as if the user had spoken it.
// It returns an error when the agent is not running or the command
// queue is saturated.
func (a *VoiceAgent) SendText(text string) error {
	if !a.running.Load() {
		return NewUserError("agent is not running")
	}
	if !a.loop.TryPut(sendTextItem{text: text}) {
		return SessionErrorf("command queue is full")
	}
	return nil
}

// NotifyPlaybackDone is the music controller's cleanup handoff. Wire it
// as the controller's OnHandoff callback.
func (a *VoiceAgent) NotifyPlaybackDone(interrupted bool) {
	a.loop.Put(playbackDoneItem{interrupted: interrupted})
}

// Run connects and serves the agent until ctx is canceled or the
// session fails beyond recovery. It owns the capture and render
// devices for its whole lifetime.
func (a *VoiceAgent) Run(ctx context.Context) (err error) {
	if !a.running.CompareAndSwap(false, true) {
		return NewUserError("agent is already running")
	}
	defer a.running.Store(false)

	captureRate := a.params.Detector.SampleRate()
	input, err := a.params.OpenInput(captureRate, a.params.CaptureBlockSize, a.pipeline.process)
	if err != nil {
		return DeviceErrorf("failed to open capture stream: %w", err)
	}
	defer func() {
		err = errors.Join(err, input.Stop(), input.Close())
	}()
	if err := input.Start(); err != nil {
		return DeviceErrorf("failed to start capture stream: %w", err)
	}

	if err := a.player.Start(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.player.Close())
	}()

	// Music stops before the devices are torn down, and no partial
	// listening state survives.
	defer func() {
		if a.params.Music != nil {
			a.params.Music.Stop()
		}
		a.mode.Reset()
	}()

	Logger().Info("voice agent running",
		"model", a.params.Model, "capture_rate", captureRate,
		"session_rate", a.params.SessionSampleRate)

	attempt := 0
	needsReplay := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess, err := connectSession(ctx, sessionConnectParams{
			url:    a.endpoint,
			apiKey: a.params.APIKey,
			config: a.sessionConfig(),
		})
		if err != nil {
			attempt++
			if a.params.DisableReconnect || attempt > a.params.MaxReconnectAttempts {
				return err
			}
			delay := backoffDelay(attempt)
			Logger().Warn("session connection failed; retrying",
				"attempt", attempt, "backoff", delay, "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
		Logger().Info("session established")

		if needsReplay {
			if err := a.replayHistory(ctx, sess); err != nil {
				Logger().Error("history replay failed", "err", err)
			}
			needsReplay = false
		}

		sess.startListener(ctx, a.loop)
		loopErr := a.processLoop(ctx, sess)
		closeErr := sess.close()
		a.resetSessionState()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(loopErr, ErrSessionExpired):
			Logger().Info("session expired; reconnecting with history replay")
			needsReplay = true
			attempt = 0
		case loopErr != nil:
			attempt++
			if a.params.DisableReconnect || attempt > a.params.MaxReconnectAttempts {
				return errors.Join(loopErr, closeErr)
			}
			delay := backoffDelay(attempt)
			Logger().Warn("session failed; reconnecting",
				"attempt", attempt, "backoff", delay, "err", loopErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		default:
			return closeErr
		}
	}
}

// processLoop is the scheduler: the only goroutine that writes to the
// session and mutates response state.
func (a *VoiceAgent) processLoop(ctx context.Context, sess *realtimeSession) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, ok := a.loop.GetTimeout(loopPollInterval)
		if !ok {
			continue
		}

		switch it := item.(type) {
		case outboundAudioItem:
			if !a.mode.Forwarding() {
				continue // window expired while the chunk was in flight
			}
			if err := sess.sendAudio(int16ToBase64(it.pcm)); err != nil {
				return err
			}
		case serverEventItem:
			if err := a.handleServerEvent(ctx, sess, it.event); err != nil {
				return err
			}
		case toolDoneItem:
			if err := a.handleToolDone(ctx, sess, it); err != nil {
				return err
			}
		case playbackDoneItem:
			if err := a.handlePlaybackDone(ctx, sess, it.interrupted); err != nil {
				return err
			}
		case sendTextItem:
			if err := a.handleSendText(ctx, sess, it.text); err != nil {
				return err
			}
		case toolsChangedItem:
			if err := sess.sendToolUpdate(a.toolDefinitions()); err != nil {
				return err
			}
		case listenerErrItem:
			return it.err
		}
	}
}

func (a *VoiceAgent) handleServerEvent(ctx context.Context, sess *realtimeSession, event serverEvent) error {
	switch event.Type {
	case eventTypeError:
		err := errorEventToError(event)
		if errors.Is(err, ErrSessionExpired) {
			return err
		}
		Logger().Error("session error event", "err", err)

	case eventTypeResponseCreated:
		a.responding = true
		a.transcript.Reset()
		a.finalTranscript = ""
		a.transcriptConsumed = false

	case eventTypeResponseAudioDelta:
		if event.ItemID != a.audioItemID {
			a.audioItemID = event.ItemID
			a.player.Reset()
		}
		pcm, err := base64ToInt16(event.Delta)
		if err != nil {
			Logger().Warn("invalid audio delta", "err", err)
			return nil
		}
		a.player.AddAudio(pcm)

	case eventTypeResponseTranscriptDelta:
		a.transcript.WriteString(event.Delta)

	case eventTypeResponseTranscriptDone:
		a.finalTranscript = event.Transcript

	case eventTypeResponseOutputItemDone:
		if event.Item != nil && event.Item.Type == "function_call" {
			a.dispatchToolCall(ctx, *event.Item)
		}

	case eventTypeResponseDone:
		a.finishResponse(ctx)

	case eventTypeSpeechStarted:
		a.pipeline.onSpeechStarted()
		if a.responding {
			// Barge-in: silence the assistant immediately.
			a.player.Reset()
			a.responding = false
			if err := sess.sendResponseCancel(); err != nil {
				return err
			}
		}

	case eventTypeSpeechStopped:
		pcm := a.pipeline.onSpeechStopped()
		if len(pcm) > 0 {
			a.appendHistory(ctx, history.Entry{
				Role:        history.RoleUser,
				AudioBase64: int16ToBase64(pcm),
				Replayable:  true,
			})
		}

	default:
		Logger().Debug("unhandled session event", "event", debugEventString(event))
	}
	return nil
}

func (a *VoiceAgent) finishResponse(ctx context.Context) {
	text := cmp.Or(a.finalTranscript, a.transcript.String())
	if text != "" && !a.transcriptConsumed {
		a.appendHistory(ctx, history.Entry{
			Role:       history.RoleAssistant,
			Content:    text,
			Replayable: true,
		})
		if cb := a.params.OnTranscript; cb != nil {
			cb(text)
		}
	}
	a.responding = false
	a.transcript.Reset()
	a.finalTranscript = ""
	a.transcriptConsumed = false
	a.mode.ReturnToIdle()
}

func (a *VoiceAgent) handleSendText(ctx context.Context, sess *realtimeSession, text string) error {
	if a.params.Music != nil && a.params.Music.IsPlaying() {
		a.params.Music.Interrupt()
	}
	a.appendHistory(ctx, history.Entry{
		Role:       history.RoleUser,
		Content:    text,
		Replayable: true,
	})
	if a.responding {
		a.player.Reset()
		a.responding = false
		if err := sess.sendResponseCancel(); err != nil {
			return err
		}
	}
	err := sess.sendItem(conversationItem{
		Type:    "message",
		Role:    "user",
		Content: []contentPart{{Type: "input_text", Text: text}},
	})
	if err != nil {
		return err
	}
	return sess.sendResponseCreate()
}

func (a *VoiceAgent) handlePlaybackDone(ctx context.Context, sess *realtimeSession, interrupted bool) error {
	if interrupted {
		return a.handleSendText(ctx, sess, musicInterruptedNotice)
	}
	a.mode.ReturnToIdle()
	return nil
}

// replayHistory reconstructs the conversation in a fresh session after
// the previous one expired. Entries that cannot be rebuilt remotely are
// skipped with a log line, never dropped from the store.
func (a *VoiceAgent) replayHistory(ctx context.Context, sess *realtimeSession) error {
	if a.params.History == nil {
		return nil
	}
	entries, err := a.params.History.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	replayed := 0
	for _, entry := range entries {
		if !entry.Replayable {
			Logger().Info("skipping non-replayable history entry", "id", entry.ID)
			continue
		}
		item, ok := replayItem(entry)
		if !ok {
			Logger().Info("skipping non-reconstructible history entry", "id", entry.ID)
			continue
		}
		if err := sess.sendItem(item); err != nil {
			return err
		}
		replayed++
	}
	Logger().Info("conversation history replayed", "entries", replayed)
	return nil
}

func replayItem(entry history.Entry) (conversationItem, bool) {
	switch {
	case entry.IsToolCall():
		return conversationItem{
			Type:      "function_call",
			CallID:    entry.ToolCallID,
			Name:      entry.ToolName,
			Arguments: cmp.Or(entry.ToolArguments, "{}"),
		}, true
	case entry.Role == history.RoleTool && entry.ToolCallID != "":
		return conversationItem{
			Type:   "function_call_output",
			CallID: entry.ToolCallID,
			Output: entry.Content,
		}, true
	case entry.Role == history.RoleUser && entry.Content != "":
		return conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: entry.Content}},
		}, true
	case entry.Role == history.RoleUser && entry.AudioBase64 != "":
		return conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_audio", Audio: entry.AudioBase64}},
		}, true
	case entry.Role == history.RoleAssistant && entry.Content != "":
		return conversationItem{
			Type:    "message",
			Role:    "assistant",
			Content: []contentPart{{Type: "text", Text: entry.Content}},
		}, true
	default:
		return conversationItem{}, false
	}
}

func (a *VoiceAgent) appendHistory(ctx context.Context, entry history.Entry) {
	if a.params.History == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	if err := a.params.History.Append(ctx, entry); err != nil {
		Logger().Error("failed to append history entry", "err", err)
	}
}

func (a *VoiceAgent) resetSessionState() {
	a.responding = false
	a.audioItemID = ""
	a.transcript.Reset()
	a.finalTranscript = ""
	a.transcriptConsumed = false
	a.player.Reset()
	a.mode.Reset()
}

func (a *VoiceAgent) sessionConfig() sessionConfig {
	return sessionConfig{
		Modalities:        []string{"audio", "text"},
		Instructions:      a.params.Instructions,
		Voice:             a.params.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		Temperature:       a.params.Temperature,
		Tools:             a.toolDefinitions(),
		TurnDetection: &turnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
		},
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt > 4 {
		return 30 * time.Second
	}
	return time.Duration(1<<attempt) * time.Second
}

// Loop queue items.

type loopItem interface{ isLoopItem() }

type serverEventItem struct{ event serverEvent }

type outboundAudioItem struct{ pcm []int16 }

type toolDoneItem struct {
	callID string
	name   string
	result tools.Result
}

type playbackDoneItem struct{ interrupted bool }

type sendTextItem struct{ text string }

type toolsChangedItem struct{}

type listenerErrItem struct{ err error }

func (serverEventItem) isLoopItem()   {}
func (outboundAudioItem) isLoopItem() {}
func (toolDoneItem) isLoopItem()      {}
func (playbackDoneItem) isLoopItem()  {}
func (sendTextItem) isLoopItem()      {}
func (toolsChangedItem) isLoopItem()  {}
func (listenerErrItem) isLoopItem()   {}
