/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package failure defines the error taxonomy shared by every generation stage.
package failure

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage names where in the generation cycle a failure was observed.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageGeneration Stage = "generation"
	StageValidation Stage = "validation"
	StageRuntime    Stage = "runtime"
	StageConfig     Stage = "config"
)

// BuildTime reports whether the stage is observed before the generated code executes.
func (s Stage) BuildTime() bool {
	return s != StageRuntime
}

// Context is the error context threaded into the next generation request.
type Context struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

func (c Context) String() string {
	return fmt.Sprintf("%s: %s", c.Stage, c.Message)
}

// Error is a stage-tagged failure. Message is safe to show to users and to
// feed back into a prompt; the cause keeps the full chain for logs.
type Error struct {
	Stage   Stage
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s error: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Stage, e.Message, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause implements the pkg/errors causer interface.
func (e *Error) Cause() error { return e.cause }

// Context returns the prompt-facing view of the failure.
func (e *Error) Context() Context {
	msg := e.Message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, errors.Cause(e.cause))
	}
	return Context{Stage: e.Stage, Message: msg}
}

func newError(stage Stage, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Stage: stage, Message: msg, cause: cause}
}

// Ingest reports a fetch or parse failure of the dataset.
func Ingest(cause error, format string, args ...any) *Error {
	return newError(StageIngest, cause, format, args...)
}

// Generation reports a failure of the completion capability.
func Generation(cause error, format string, args ...any) *Error {
	return newError(StageGeneration, cause, format, args...)
}

// Validation reports an unmet structural contract.
func Validation(cause error, format string, args ...any) *Error {
	return newError(StageValidation, cause, format, args...)
}

// Runtime reports an execution failure observed by the rendering host.
func Runtime(format string, args ...any) *Error {
	return newError(StageRuntime, nil, format, args...)
}

// Config reports missing or invalid process configuration.
func Config(cause error, format string, args ...any) *Error {
	return newError(StageConfig, cause, format, args...)
}

// StageOf extracts the stage of a tagged failure anywhere in err's chain.
func StageOf(err error) (Stage, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Stage, true
	}
	return "", false
}

// IsFatal reports whether err must end the current turn without retry.
func IsFatal(err error) bool {
	stage, ok := StageOf(err)
	return ok && (stage == StageIngest || stage == StageConfig)
}

// ContextOf converts any error into a prompt-facing context. Untagged errors
// are attributed to the fallback stage.
func ContextOf(err error, fallback Stage) Context {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Context()
	}
	return Context{Stage: fallback, Message: err.Error()}
}
