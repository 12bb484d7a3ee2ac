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

// Package generate holds the values that flow through one generation cycle
// and the prompt that drives it.
package generate

import (
	"strings"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/intent"
)

// Request is one generation attempt. It is a value: Next returns a copy.
type Request struct {
	SourceURL     string           `json:"sourceUrl"`
	UserQuery     string           `json:"userQuery"`
	PreviousError *failure.Context `json:"previousError,omitempty"`
	Attempt       int              `json:"attempt"`
}

// NewRequest returns the first attempt for a user turn.
func NewRequest(sourceURL, userQuery string) Request {
	return Request{SourceURL: sourceURL, UserQuery: userQuery}
}

// Next returns the request for the following attempt, carrying cause as the
// previous error.
func (r Request) Next(cause failure.Context) Request {
	next := r
	next.Attempt = r.Attempt + 1
	next.PreviousError = &cause
	return next
}

// Check reports missing fields as a config failure.
func (r Request) Check() error {
	var missing []string
	if strings.TrimSpace(r.SourceURL) == "" {
		missing = append(missing, "sourceUrl")
	}
	if strings.TrimSpace(r.UserQuery) == "" {
		missing = append(missing, "userQuery")
	}
	if len(missing) > 0 {
		return failure.Config(nil, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if r.Attempt < 0 {
		return failure.Config(nil, "attempt must not be negative")
	}
	return nil
}

// Result is the outcome of one controller run.
type Result struct {
	Code string `json:"code"`
	// Valid is true when Code passed structural validation.
	Valid    bool          `json:"valid"`
	Intent   intent.Intent `json:"intent"`
	Attempts int           `json:"attempts"`
	// Fallback is set when Code is the dataset fallback.
	Fallback bool `json:"fallback"`
	// Terminal is set when the budget ran out and Code is the terminal
	// component.
	Terminal bool              `json:"terminal"`
	Errors   []failure.Context `json:"errors,omitempty"`
}

// LastError returns the most recent failure, if any.
func (r Result) LastError() (failure.Context, bool) {
	if len(r.Errors) == 0 {
		return failure.Context{}, false
	}
	return r.Errors[len(r.Errors)-1], true
}

// Budget is a bounded retry counter. The first attempt is free; Max bounds
// the retries after it.
type Budget struct {
	Max  int
	used int
}

// NewBudget returns a budget allowing max retries. Negative means zero.
func NewBudget(max int) *Budget {
	if max < 0 {
		max = 0
	}
	return &Budget{Max: max}
}

// Take consumes one retry and reports whether one was available.
func (b *Budget) Take() bool {
	if b.used >= b.Max {
		return false
	}
	b.used++
	return true
}

// Used returns the number of retries taken.
func (b *Budget) Used() int { return b.used }

// Remaining returns the number of retries left.
func (b *Budget) Remaining() int { return b.Max - b.used }

// Exhausted reports whether no retry is left.
func (b *Budget) Exhausted() bool { return b.used >= b.Max }

// Reset starts the budget over for a new turn.
func (b *Budget) Reset() { b.used = 0 }
