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
	"fmt"
)

// SessionError is returned when the realtime session misbehaves at the
// protocol level, e.g. an unexpected event or a malformed payload.
type SessionError error

func NewSessionError(message string) SessionError {
	return SessionError(errors.New(message))
}

func SessionErrorf(format string, a ...any) SessionError {
	return SessionError(fmt.Errorf(format, a...))
}

// SessionExpiredError is returned when the remote side reports that the
// session has reached its maximum lifetime. It is recoverable: the agent
// reconnects and replays the conversation history.
type SessionExpiredError error

func NewSessionExpiredError(message string) SessionExpiredError {
	return SessionExpiredError(errors.New(message))
}

// ErrSessionExpired is wrapped into errors caused by session expiry;
// check it with errors.Is.
var ErrSessionExpired = NewSessionExpiredError("session expired")

// DeviceError is returned for audio capture or render device faults.
type DeviceError error

func NewDeviceError(message string) DeviceError {
	return DeviceError(errors.New(message))
}

func DeviceErrorf(format string, a ...any) DeviceError {
	return DeviceError(fmt.Errorf(format, a...))
}

// UserError is returned when the agent is misconfigured or misused.
type UserError error

func NewUserError(message string) UserError {
	return UserError(errors.New(message))
}

func UserErrorf(format string, a ...any) UserError {
	return UserError(fmt.Errorf(format, a...))
}
