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

// Package tools defines the function tools a session can invoke by name.
// Handlers are plain synchronous functions; they may block on I/O, so the
// agent runs them off its scheduler goroutine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusWarning = "warning"
)

// Result is the structured outcome of a tool invocation.
type Result struct {
	// Status is one of the Status* constants.
	Status string `json:"status"`

	// Message is the human/model-readable outcome, sent back to the
	// session as the function call output when a reply is needed.
	Message string `json:"message"`

	// NoResponseNeeded suppresses both the function call output and the
	// follow-up response request. Handlers set it when their side effects
	// already hand control back to the agent (e.g. starting playback).
	NoResponseNeeded bool `json:"no_response_needed,omitempty"`
}

// ErrorResult builds a Result carrying an error message that must be
// reported back to the session.
func ErrorResult(format string, a ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, a...)}
}

// Handler invokes a tool with the raw JSON arguments from the session.
type Handler func(ctx context.Context, arguments string) (Result, error)

// Function is a named tool exposed to the session.
type Function struct {
	// The name of the tool, as shown to the model.
	Name string

	// A description of the tool, as shown to the model.
	Description string

	// The JSON schema for the tool's parameters.
	ParamsJSONSchema map[string]any

	// OnInvoke executes the tool. It may block.
	OnInvoke Handler
}

// NewFunctionTool creates a Function with automatic JSON schema
// generation from the argument type T, using struct tags and reflection.
//
// Example:
//
//	type PlayArgs struct {
//	    Search string `json:"search"`
//	}
//
//	tool := tools.NewFunctionTool("play_music", "Play a song", playMusic)
func NewFunctionTool[T any](name, description string, handler func(ctx context.Context, args T) (Result, error)) Function {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: false,
		AllowAdditionalProperties:  false,
	}

	var zero T
	schema := reflector.Reflect(&zero)

	schemaBytes, _ := json.Marshal(schema)
	var schemaMap map[string]any
	_ = json.Unmarshal(schemaBytes, &schemaMap)

	if description != "" && schemaMap != nil {
		schemaMap["description"] = description
	}

	return Function{
		Name:             name,
		Description:      description,
		ParamsJSONSchema: schemaMap,
		OnInvoke: func(ctx context.Context, arguments string) (Result, error) {
			var args T
			if arguments != "" {
				if err := json.Unmarshal([]byte(arguments), &args); err != nil {
					return Result{}, fmt.Errorf("failed to parse arguments: %w", err)
				}
			}
			return handler(ctx, args)
		},
	}
}
