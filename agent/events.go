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

import "encoding/json"

// Realtime API event types used by the agent.
const (
	eventTypeSessionUpdate          = "session.update"
	eventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	eventTypeConversationItemCreate = "conversation.item.create"
	eventTypeResponseCreate         = "response.create"
	eventTypeResponseCancel         = "response.cancel"

	eventTypeSessionCreated          = "session.created"
	eventTypeSessionUpdated          = "session.updated"
	eventTypeResponseCreated         = "response.created"
	eventTypeResponseDone            = "response.done"
	eventTypeResponseAudioDelta      = "response.audio.delta"
	eventTypeResponseTranscriptDelta = "response.audio_transcript.delta"
	eventTypeResponseTranscriptDone  = "response.audio_transcript.done"
	eventTypeResponseOutputItemDone  = "response.output_item.done"
	eventTypeSpeechStarted           = "input_audio_buffer.speech_started"
	eventTypeSpeechStopped           = "input_audio_buffer.speech_stopped"
	eventTypeError                   = "error"
)

// errorCodeSessionExpired marks the recoverable end-of-lifetime error.
const errorCodeSessionExpired = "session_expired"

// clientEvent is any message the agent sends to the session.
type clientEvent struct {
	Type     string            `json:"type"`
	Session  *sessionConfig    `json:"session,omitempty"`
	Audio    string            `json:"audio,omitempty"`
	Item     *conversationItem `json:"item,omitempty"`
	Response json.RawMessage   `json:"response,omitempty"`
}

type sessionConfig struct {
	Modalities        []string         `json:"modalities,omitempty"`
	Instructions      string           `json:"instructions,omitempty"`
	Voice             string           `json:"voice,omitempty"`
	InputAudioFormat  string           `json:"input_audio_format,omitempty"`
	OutputAudioFormat string           `json:"output_audio_format,omitempty"`
	Temperature       float64          `json:"temperature,omitempty"`
	Tools             []toolDefinition `json:"tools,omitempty"`
	TurnDetection     *turnDetection   `json:"turn_detection,omitempty"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

type toolDefinition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type conversationItem struct {
	Type      string        `json:"type"`
	Role      string        `json:"role,omitempty"`
	Content   []contentPart `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
}

type contentPart struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// serverEvent is any message received from the session. Only the fields
// the agent dispatches on are decoded.
type serverEvent struct {
	Type       string          `json:"type"`
	EventID    string          `json:"event_id,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Item       *serverItem     `json:"item,omitempty"`
	Response   *serverResponse `json:"response,omitempty"`
	Error      *serverError    `json:"error,omitempty"`
	Session    json.RawMessage `json:"session,omitempty"`
}

type serverItem struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Role      string `json:"role,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type serverResponse struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
}

type serverError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
