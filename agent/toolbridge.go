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
	"cmp"
	"context"
	"encoding/json"
	"slices"

	"github.com/nlpodyssey/voice-agent-go/asynctask"
	"github.com/nlpodyssey/voice-agent-go/history"
	"github.com/nlpodyssey/voice-agent-go/tools"
)

// RegisterTool makes a function tool callable by the session. When the
// agent is running, the session's tool catalog is updated live.
func (a *VoiceAgent) RegisterTool(fn tools.Function) {
	a.toolsMu.Lock()
	a.tools[fn.Name] = fn
	a.toolsMu.Unlock()

	if a.running.Load() {
		a.loop.Put(toolsChangedItem{})
	}
}

func (a *VoiceAgent) lookupTool(name string) (tools.Function, bool) {
	a.toolsMu.Lock()
	defer a.toolsMu.Unlock()
	fn, ok := a.tools[name]
	return fn, ok
}

func (a *VoiceAgent) toolDefinitions() []toolDefinition {
	a.toolsMu.Lock()
	defs := make([]toolDefinition, 0, len(a.tools))
	for _, fn := range a.tools {
		defs = append(defs, toolDefinition{
			Type:        "function",
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.ParamsJSONSchema,
		})
	}
	a.toolsMu.Unlock()

	slices.SortFunc(defs, func(a, b toolDefinition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return defs
}

// dispatchToolCall records the invocation and runs the handler on a
// task, so slow tools never stall the scheduler. Completion re-enters
// the loop as a toolDoneItem.
func (a *VoiceAgent) dispatchToolCall(ctx context.Context, item serverItem) {
	// The transcript spoken before the call belongs to this entry;
	// response.done must not log it a second time.
	text := cmp.Or(a.finalTranscript, a.transcript.String())
	a.transcriptConsumed = true

	a.appendHistory(ctx, history.Entry{
		Role:          history.RoleAssistant,
		Content:       text,
		ToolCallID:    item.CallID,
		ToolName:      item.Name,
		ToolArguments: item.Arguments,
		Replayable:    true,
	})

	fn, ok := a.lookupTool(item.Name)
	if !ok {
		Logger().Warn("session requested unknown tool", "tool", item.Name)
		a.loop.Put(toolDoneItem{
			callID: item.CallID,
			name:   item.Name,
			result: tools.ErrorResult("unknown tool %q", item.Name),
		})
		return
	}

	Logger().Info("invoking tool", "tool", item.Name)
	callID, name, arguments := item.CallID, item.Name, item.Arguments
	asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
		result := tools.ErrorResult("tool %q crashed", name)
		defer func() {
			a.loop.Put(toolDoneItem{callID: callID, name: name, result: result})
		}()

		r, err := fn.OnInvoke(ctx, arguments)
		if err != nil {
			Logger().Error("tool invocation failed", "tool", name, "err", err)
			result = tools.ErrorResult("tool %q failed: %v", name, err)
			return nil
		}
		result = r
		return nil
	})
}

func (a *VoiceAgent) handleToolDone(ctx context.Context, sess *realtimeSession, item toolDoneItem) error {
	a.appendHistory(ctx, history.Entry{
		Role:       history.RoleTool,
		ToolCallID: item.callID,
		ToolName:   item.name,
		Content:    item.result.Message,
		Replayable: true,
	})
	Logger().Info("tool finished", "tool", item.name, "status", item.result.Status)

	if item.result.NoResponseNeeded {
		a.mode.ReturnToIdle()
		return nil
	}

	output, err := json.Marshal(item.result)
	if err != nil {
		output = []byte(item.result.Message)
	}
	if err := sess.sendItem(conversationItem{
		Type:   "function_call_output",
		CallID: item.callID,
		Output: string(output),
	}); err != nil {
		return err
	}
	return sess.sendResponseCreate()
}
