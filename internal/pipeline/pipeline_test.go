// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
)

// mockStepOK returns StepOK with an optional snapshot.
type mockStepOK struct {
	name string
	snap *Snapshot
}

func (m *mockStepOK) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock-ok"
}

func (m *mockStepOK) Run(ctx context.Context, st *PipelineState) (*StepResult, error) {
	return OK(m.snap), nil
}

// mockStepFail fails the first `times` runs, then succeeds with a component.
type mockStepFail struct {
	recoverable bool
	times       int
	runs        int
	seen        []*failure.Context
}

func (m *mockStepFail) Name() string { return "mock-fail" }

func (m *mockStepFail) Run(ctx context.Context, st *PipelineState) (*StepResult, error) {
	m.runs++
	m.seen = append(m.seen, st.Request.PreviousError)
	if m.times < 0 || m.runs <= m.times {
		return Failed(m.recoverable, failure.Context{
			Stage:   failure.StageValidation,
			Message: "bad output " + strings.Repeat("!", m.runs),
		}), nil
	}
	return OK(ComponentSnapshot(&Component{Code: "export default function App() {}"})), nil
}

func TestPipeline_Run_Success(t *testing.T) {
	ctx := context.Background()
	st := &PipelineState{RunID: "run-1"}
	snap := CompletionSnapshot("hello")

	pl := &Pipeline{
		Steps: []Step{&mockStepOK{name: "generate", snap: snap}},
		Agent: &DefaultAgent{},
	}
	err := pl.Run(ctx, st)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Completion == nil {
		t.Fatal("expected Completion to be set")
	}
	if text, _ := st.CompletionText(); text != "hello" {
		t.Errorf("payload: got %v", text)
	}
	if len(st.History) != 1 {
		t.Errorf("expected 1 history record, got %d", len(st.History))
	}
	if st.History[0].Status != StepOK || st.History[0].Snapshot != snap.Hash {
		t.Errorf("history: got %+v", st.History[0])
	}
}

func TestPipeline_Run_AbortOnNonRecoverable(t *testing.T) {
	ctx := context.Background()
	st := &PipelineState{RunID: "run-1", Budget: generate.NewBudget(3)}

	step := &mockStepFail{recoverable: false, times: -1}
	pl := &Pipeline{Steps: []Step{step}, Agent: &DefaultAgent{}}
	err := pl.Run(ctx, st)
	if err == nil {
		t.Fatal("expected error on non-recoverable failure")
	}
	if step.runs != 1 {
		t.Errorf("abort must not retry, ran %d times", step.runs)
	}
}

func TestPipeline_Run_RetryThreadsError(t *testing.T) {
	ctx := context.Background()
	st := &PipelineState{RunID: "run-1", Budget: generate.NewBudget(2)}
	first := &mockStepOK{name: "generate", snap: CompletionSnapshot("x")}
	step := &mockStepFail{recoverable: true, times: 2}

	pl := &Pipeline{Steps: []Step{first, step}}
	if err := pl.Run(ctx, st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if step.runs != 3 {
		t.Fatalf("expected 3 runs, got %d", step.runs)
	}
	if step.seen[0] != nil {
		t.Errorf("first attempt must have no previous error")
	}
	if step.seen[2] == nil || step.seen[2].Message != "bad output !!" {
		t.Errorf("third attempt saw %+v", step.seen[2])
	}
	if st.Request.Attempt != 2 {
		t.Errorf("attempt: got %d", st.Request.Attempt)
	}
	if _, ok := st.CurrentComponent(); !ok {
		t.Error("expected a component")
	}
}

func TestPipeline_Run_Exhausted(t *testing.T) {
	ctx := context.Background()
	st := &PipelineState{RunID: "run-1", Budget: generate.NewBudget(2)}
	step := &mockStepFail{recoverable: true, times: -1}

	err := (&Pipeline{Steps: []Step{step}}).Run(ctx, st)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if step.runs != 3 {
		t.Errorf("max 2 retries means 3 runs, got %d", step.runs)
	}
	if len(st.Errors) != 3 {
		t.Errorf("errors: got %d", len(st.Errors))
	}
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	step := &mockStepFail{recoverable: true, times: -1}
	err := (&Pipeline{Steps: []Step{step}}).Run(ctx, &PipelineState{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if step.runs != 0 {
		t.Errorf("ran %d times", step.runs)
	}
}

func TestDefaultAgent_OnStepFailure(t *testing.T) {
	ctx := context.Background()
	agent := &DefaultAgent{}
	st := &PipelineState{Budget: generate.NewBudget(1)}

	t.Run("abort when not recoverable", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, nil, st, &StepResult{Recoverable: false}, 0)
		if d != DecisionAbort {
			t.Errorf("got %s", d)
		}
	})

	t.Run("retry when recoverable and under max", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, nil, st, &StepResult{Recoverable: true}, 0)
		if d != DecisionRetry {
			t.Errorf("got %s", d)
		}
	})

	t.Run("rollback when recoverable and at max", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, nil, st, &StepResult{Recoverable: true}, 1)
		if d != DecisionRollback {
			t.Errorf("got %s", d)
		}
	})
}

func TestApplySnapshot(t *testing.T) {
	st := &PipelineState{}
	comp := ComponentSnapshot(&Component{Code: "x"})
	applySnapshot(st, comp)
	if st.Component != comp {
		t.Error("Component not set")
	}
	applySnapshot(st, CompletionSnapshot("y"))
	if st.Completion == nil || st.Component != nil {
		t.Error("a new completion must clear the component")
	}
}

func TestRollback(t *testing.T) {
	prev := CompletionSnapshot("prev")
	st := &PipelineState{Completion: prev}
	cp := st.checkpoint()
	st.Completion = CompletionSnapshot("cur")
	rollback(st, cp)
	if st.Completion != prev {
		t.Error("rollback did not restore")
	}
}

func TestController_Terminal(t *testing.T) {
	step := &mockStepFail{recoverable: true, times: -1}
	c := &Controller{Pipeline: &Pipeline{Steps: []Step{step}}, MaxRetry: 1}
	res := c.Run(context.Background(), generate.NewRequest("u", "q"), Input{Intent: intent.Bar})
	if !res.Terminal || res.Valid {
		t.Fatalf("expected terminal result, got %+v", res)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts: got %d", res.Attempts)
	}
	if !strings.Contains(res.Code, "after 2 attempts") || !strings.Contains(res.Code, `"bad output !!"`) {
		t.Errorf("terminal code: %s", res.Code)
	}
	if res.Intent != intent.Bar {
		t.Errorf("intent: got %s", res.Intent)
	}
}

func TestController_Accepted(t *testing.T) {
	step := &mockStepFail{recoverable: true, times: 1}
	c := &Controller{Pipeline: &Pipeline{Steps: []Step{step}}, MaxRetry: 2}
	res := c.Run(context.Background(), generate.NewRequest("u", "q"), Input{})
	if !res.Valid || res.Terminal {
		t.Fatalf("expected accepted result, got %+v", res)
	}
	if res.Attempts != 2 || len(res.Errors) != 1 {
		t.Errorf("attempts=%d errors=%d", res.Attempts, len(res.Errors))
	}
}
