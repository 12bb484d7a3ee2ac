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

// Package feedback drives regeneration from runtime failures reported by
// the host that renders a generated component.
package feedback

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/llm/log"
)

// DefaultMaxRetry is the runtime budget when none is configured.
const DefaultMaxRetry = 2

// ExhaustedMessage is shown once the runtime budget is spent.
const ExhaustedMessage = "The visualization kept failing while rendering, so automatic repair was stopped. Try rephrasing your request."

// Regenerator runs one request through the build pipeline.
type Regenerator interface {
	Generate(ctx context.Context, req generate.Request) (generate.Result, error)
}

// RegeneratorFunc adapts a function to Regenerator.
type RegeneratorFunc func(ctx context.Context, req generate.Request) (generate.Result, error)

func (f RegeneratorFunc) Generate(ctx context.Context, req generate.Request) (generate.Result, error) {
	return f(ctx, req)
}

// Outcome is what the loop did with a signal.
type Outcome string

const (
	// OutcomeGenerated is the first component of a turn.
	OutcomeGenerated Outcome = "generated"
	// OutcomeRegenerated replaces the rendered component.
	OutcomeRegenerated Outcome = "regenerated"
	// OutcomeIgnored means a regeneration was already in flight.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeExhausted means the runtime budget is spent.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeStale means the signal or result belongs to an abandoned turn.
	OutcomeStale Outcome = "stale"
	// OutcomeFailed means the turn cannot proceed, e.g. the dataset is gone.
	OutcomeFailed Outcome = "failed"
)

// Turn is one user query and the dataset it is about.
type Turn struct {
	ID        string `json:"turnId"`
	SourceURL string `json:"fileUrl"`
	UserQuery string `json:"userQuery"`
}

// Response tells the host what to render. Code is empty for ignored and
// stale signals: the host keeps what it has.
type Response struct {
	TurnID  string           `json:"turnId"`
	Outcome Outcome          `json:"action"`
	Code    string           `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
	Attempt int              `json:"attempt"`
	Result  *generate.Result `json:"result,omitempty"`
}

// State is a point-in-time view of a loop.
type State struct {
	Turn           Turn   `json:"turn"`
	Code           string `json:"code,omitempty"`
	Regenerating   bool   `json:"regenerating"`
	RuntimeRetries int    `json:"runtimeRetries"`
}

// Loop is the runtime feedback loop of one rendering host. It allows a
// single regeneration in flight and drops results of abandoned turns.
type Loop struct {
	regen Regenerator

	mu           sync.Mutex
	turn         Turn
	budget       *generate.Budget
	regenerating bool
	cancel       context.CancelFunc
	code         string
}

// NewLoop returns a loop allowing maxRetry runtime regenerations per turn.
func NewLoop(regen Regenerator, maxRetry int) *Loop {
	return &Loop{regen: regen, budget: generate.NewBudget(maxRetry)}
}

// BeginTurn starts a new turn. The runtime budget starts over and any
// regeneration still in flight for the previous turn is cancelled; its
// result will be dropped.
func (l *Loop) BeginTurn(sourceURL, userQuery string) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.begin(sourceURL, userQuery)
}

// begin resets the loop for a new turn. l.mu must be held.
func (l *Loop) begin(sourceURL, userQuery string) Turn {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.turn = Turn{ID: uuid.NewString(), SourceURL: sourceURL, UserQuery: userQuery}
	l.budget.Reset()
	l.regenerating = false
	l.code = ""
	log.Debug("feedback: begin turn %s", l.turn.ID)
	return l.turn
}

// Start begins a turn and generates its first component.
func (l *Loop) Start(ctx context.Context, sourceURL, userQuery string) Response {
	l.mu.Lock()
	turn := l.begin(sourceURL, userQuery)
	runCtx := l.acquire(ctx)
	l.mu.Unlock()
	return l.run(runCtx, turn, generate.NewRequest(sourceURL, userQuery), OutcomeGenerated)
}

// ReportRuntimeError handles an uncaught error thrown by the rendered
// component of turnID. An empty turnID means the current turn.
func (l *Loop) ReportRuntimeError(ctx context.Context, turnID, message string) Response {
	l.mu.Lock()
	turn := l.turn
	if turnID == "" {
		turnID = turn.ID
	}
	switch {
	case turn.ID == "" || turnID != turn.ID:
		l.mu.Unlock()
		log.Info("feedback: dropping runtime error of stale turn %s", turnID)
		return Response{TurnID: turnID, Outcome: OutcomeStale}
	case l.regenerating:
		l.mu.Unlock()
		log.Debug("feedback: turn %s: regeneration in flight, ignoring %q", turn.ID, message)
		return Response{TurnID: turn.ID, Outcome: OutcomeIgnored}
	}
	if !l.budget.Take() {
		used := l.budget.Used()
		l.code = generate.RuntimeExhaustedComponent(used, message)
		code := l.code
		l.mu.Unlock()
		log.Info("feedback: turn %s: runtime budget exhausted after %d regenerations", turn.ID, used)
		return Response{TurnID: turn.ID, Outcome: OutcomeExhausted, Code: code, Message: ExhaustedMessage, Attempt: used}
	}
	attempt := l.budget.Used()
	runCtx := l.acquire(ctx)
	l.mu.Unlock()

	cause := failure.Runtime("%s", message).Context()
	req := generate.NewRequest(turn.SourceURL, turn.UserQuery)
	req.PreviousError = &cause
	req.Attempt = attempt
	log.Info("feedback: turn %s: regenerating after runtime error (attempt %d)", turn.ID, attempt)
	return l.run(runCtx, turn, req, OutcomeRegenerated)
}

// acquire marks a regeneration in flight. l.mu must be held.
func (l *Loop) acquire(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	l.regenerating = true
	l.cancel = cancel
	return runCtx
}

func (l *Loop) run(ctx context.Context, turn Turn, req generate.Request, outcome Outcome) Response {
	res, err := l.regen.Generate(ctx, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.turn.ID != turn.ID {
		log.Info("feedback: dropping result of stale turn %s", turn.ID)
		return Response{TurnID: turn.ID, Outcome: OutcomeStale}
	}
	l.regenerating = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.code = res.Code
	resp := Response{TurnID: turn.ID, Outcome: outcome, Code: res.Code, Attempt: req.Attempt, Result: &res}
	if err != nil {
		resp.Outcome = OutcomeFailed
		resp.Message = failure.ContextOf(err, failure.StageGeneration).Message
	}
	return resp
}

// State returns the current turn and rendered component.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Turn:           l.turn,
		Code:           l.code,
		Regenerating:   l.regenerating,
		RuntimeRetries: l.budget.Used(),
	}
}

// Close cancels any regeneration in flight.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
