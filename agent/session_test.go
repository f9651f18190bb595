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
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSServer runs a websocket endpoint calling handler per connection
// with a 1-based connection index.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn, index int)) string {
	t.Helper()
	var connections atomic.Int64
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, int(connections.Add(1)))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// serveHandshake plays the server side of connectSession: announce the
// session, wait for the configuration, acknowledge it. It returns the
// received session.update event.
func serveHandshake(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if !assert.NoError(t, conn.WriteJSON(map[string]any{"type": "session.created"})) {
		return nil
	}
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("handshake read error: %v", err)
			return nil
		}
		if msg["type"] == "session.update" {
			assert.NoError(t, conn.WriteJSON(map[string]any{"type": "session.updated"}))
			return msg
		}
	}
}

func TestConnectSessionHandshake(t *testing.T) {
	received := make(chan map[string]any, 1)
	url := newWSServer(t, func(conn *websocket.Conn, _ int) {
		received <- serveHandshake(t, conn)
		for { // hold the connection until the client closes
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sess, err := connectSession(t.Context(), sessionConnectParams{
		url:    url,
		apiKey: "test-key",
		config: sessionConfig{Voice: "alloy", Instructions: "be brief"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.close() })

	msg := <-received
	session, ok := msg["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alloy", session["voice"])
	assert.Equal(t, "be brief", session["instructions"])
}

func TestConnectSessionExpiredDuringHandshake(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn, _ int) {
		_ = conn.WriteJSON(map[string]any{
			"type":  "error",
			"error": map[string]any{"code": "session_expired", "message": "session is too old"},
		})
	})

	_, err := connectSession(t.Context(), sessionConnectParams{url: url, apiKey: "k"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConnectSessionRejectsUnreachableEndpoint(t *testing.T) {
	_, err := connectSession(t.Context(), sessionConnectParams{
		url:    "ws://127.0.0.1:1/realtime",
		apiKey: "k",
	})
	assert.Error(t, err)
}

func TestErrorEventToError(t *testing.T) {
	err := errorEventToError(serverEvent{
		Type:  eventTypeError,
		Error: &serverError{Code: "rate_limited", Message: "slow down"},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Contains(t, err.Error(), "slow down")

	err = errorEventToError(serverEvent{
		Type:  eventTypeError,
		Error: &serverError{Code: errorCodeSessionExpired, Message: "gone"},
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, "2s", backoffDelay(1).String())
	assert.Equal(t, "4s", backoffDelay(2).String())
	assert.Equal(t, "8s", backoffDelay(3).String())
	assert.Equal(t, "30s", backoffDelay(10).String())
}
