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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nlpodyssey/voice-agent-go/asyncqueue"
	"github.com/nlpodyssey/voice-agent-go/asynctask"
)

const connectEventTimeout = 10 * time.Second

// realtimeSession is one websocket connection to the realtime API,
// already created and configured when connectSession returns. All
// writes happen on the scheduler goroutine; the listener task only
// reads.
type realtimeSession struct {
	conn     *websocket.Conn
	listener *asynctask.TaskNoValue
}

type sessionConnectParams struct {
	url    string
	apiKey string
	config sessionConfig
}

// connectSession dials the realtime endpoint, waits for session.created,
// applies the session configuration and waits for the acknowledgment.
func connectSession(ctx context.Context, params sessionConnectParams) (_ *realtimeSession, err error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+params.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, params.url, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, SessionErrorf("failed to connect to realtime endpoint: %w", err)
	}

	s := &realtimeSession{conn: conn}
	defer func() {
		if err != nil {
			_ = s.close()
		}
	}()

	if _, err = s.waitForEvent(eventTypeSessionCreated, connectEventTimeout); err != nil {
		return nil, err
	}

	cfg := params.config
	if err = s.send(clientEvent{Type: eventTypeSessionUpdate, Session: &cfg}); err != nil {
		return nil, err
	}
	if _, err = s.waitForEvent(eventTypeSessionUpdated, connectEventTimeout); err != nil {
		return nil, err
	}

	if err = s.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, SessionErrorf("failed to clear read deadline: %w", err)
	}
	return s, nil
}

// waitForEvent reads events until eventType arrives, ignoring unrelated
// ones. Only used during the connect/configure handshake, before the
// listener task owns the read side.
func (s *realtimeSession) waitForEvent(eventType string, timeout time.Duration) (serverEvent, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return serverEvent{}, SessionErrorf("failed to set read deadline: %w", err)
	}
	for {
		var event serverEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			return serverEvent{}, SessionErrorf("error waiting for %q event: %w", eventType, err)
		}
		switch event.Type {
		case eventType:
			return event, nil
		case eventTypeError:
			return serverEvent{}, errorEventToError(event)
		}
	}
}

// startListener reads events on a task and feeds them to the loop
// queue. A read failure or remote close surfaces as a listenerErrItem.
func (s *realtimeSession) startListener(ctx context.Context, loop *asyncqueue.Queue[loopItem]) {
	s.listener = asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
		for {
			var event serverEvent
			if err := s.conn.ReadJSON(&event); err != nil {
				if ctx.Err() == nil {
					loop.Put(listenerErrItem{err: SessionErrorf("session read error: %w", err)})
				}
				return nil
			}
			loop.Put(serverEventItem{event: event})
		}
	})
}

func (s *realtimeSession) send(event clientEvent) error {
	if err := s.conn.WriteJSON(event); err != nil {
		return SessionErrorf("failed to send %q event: %w", event.Type, err)
	}
	return nil
}

func (s *realtimeSession) sendAudio(audioBase64 string) error {
	return s.send(clientEvent{Type: eventTypeInputAudioBufferAppend, Audio: audioBase64})
}

func (s *realtimeSession) sendItem(item conversationItem) error {
	return s.send(clientEvent{Type: eventTypeConversationItemCreate, Item: &item})
}

func (s *realtimeSession) sendResponseCreate() error {
	return s.send(clientEvent{Type: eventTypeResponseCreate})
}

func (s *realtimeSession) sendResponseCancel() error {
	return s.send(clientEvent{Type: eventTypeResponseCancel})
}

func (s *realtimeSession) sendToolUpdate(tools []toolDefinition) error {
	return s.send(clientEvent{Type: eventTypeSessionUpdate, Session: &sessionConfig{Tools: tools}})
}

// close tears the connection down, unblocking the listener task.
func (s *realtimeSession) close() error {
	if s.listener != nil {
		s.listener.Cancel()
	}
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := s.conn.Close()
	if s.listener != nil {
		s.listener.AwaitTimeout(time.Second)
	}
	if err != nil {
		return SessionErrorf("error closing session connection: %w", err)
	}
	return nil
}

// errorEventToError maps a remote error event to the agent taxonomy.
// Session expiry is distinguishable so the run loop can recover.
func errorEventToError(event serverEvent) error {
	code, message := "", ""
	if event.Error != nil {
		code = event.Error.Code
		message = event.Error.Message
	}
	if code == errorCodeSessionExpired {
		return fmt.Errorf("%s: %w", message, ErrSessionExpired)
	}
	return SessionErrorf("session error event (code %q): %s", code, message)
}

// debugEventString renders an event for verbose logging without the
// audio payloads.
func debugEventString(event serverEvent) string {
	event.Delta = ""
	b, err := json.Marshal(event)
	if err != nil {
		return event.Type
	}
	return string(b)
}
