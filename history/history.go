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

// Package history stores the durable conversation log. Entries are
// append-only during a session, flushed synchronously after every
// mutation, and replayed into a freshly established session when the
// prior one expired mid-conversation.
package history

import (
	"context"
	"time"
)

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Entry is one turn of the conversation.
//
// Exactly one of Content, AudioBase64 or the tool-call fields is
// populated, depending on the entry kind:
//   - user text: Content
//   - user audio: AudioBase64 (base64 PCM at the capture rate)
//   - assistant text: Content
//   - assistant tool call: ToolName, ToolCallID, ToolArguments
//     (Content optionally carries text spoken before the call)
//   - tool result: ToolCallID, ToolName, Content
//
// Entries whose content cannot be reconstructed into a new session are
// marked Replayable=false rather than omitted from the log.
type Entry struct {
	ID            string    `json:"id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content,omitempty"`
	AudioBase64   string    `json:"audio_base64,omitempty"`
	ToolCallID    string    `json:"tool_call_id,omitempty"`
	ToolName      string    `json:"tool_name,omitempty"`
	ToolArguments string    `json:"tool_arguments,omitempty"`
	Replayable    bool      `json:"replayable"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsToolCall reports whether the entry records an assistant function call.
func (e Entry) IsToolCall() bool {
	return e.Role == RoleAssistant && e.ToolName != "" && e.ToolCallID != ""
}

// A Store persists conversation entries in creation order.
// Append must flush synchronously before returning.
type Store interface {
	// Append durably adds one entry to the end of the log.
	Append(ctx context.Context, entry Entry) error

	// Entries returns the full log in creation order.
	Entries(ctx context.Context) ([]Entry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	Close() error
}
