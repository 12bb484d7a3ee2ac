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

package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/vizcoder/lang/component"
	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/llm/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) *PromptBuilder {
	t.Helper()
	lib, err := prompt.NewLibrary("")
	require.NoError(t, err)
	return NewPromptBuilder(lib)
}

func summary(t *testing.T) dataset.Summary {
	t.Helper()
	ds, err := dataset.Parse("people.csv", strings.NewReader("Sex,Age\nMale,30\nFemale,41\n"), 0)
	require.NoError(t, err)
	return ds.Summarize(1)
}

func TestRequest_Next(t *testing.T) {
	r := NewRequest("http://x/data.csv", "pie of sex")
	require.NoError(t, r.Check())
	n := r.Next(failure.Context{Stage: failure.StageValidation, Message: "missing entry"})
	assert.Equal(t, 0, r.Attempt)
	assert.Nil(t, r.PreviousError, "Next must not mutate the receiver")
	assert.Equal(t, 1, n.Attempt)
	require.NotNil(t, n.PreviousError)
	assert.Equal(t, "missing entry", n.PreviousError.Message)
	assert.Equal(t, r.UserQuery, n.UserQuery)

	err := Request{UserQuery: "x"}.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sourceUrl")
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	assert.True(t, b.Take())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
	assert.True(t, b.Exhausted())
	assert.Equal(t, 2, b.Used())
	b.Reset()
	assert.Equal(t, 2, b.Remaining())
	assert.True(t, NewBudget(-1).Exhausted())
}

func TestBuild_FirstAttempt(t *testing.T) {
	out, err := newBuilder(t).Build(Input{
		Summary:   summary(t),
		Intent:    intent.Pie,
		UserQuery: "show gender distribution",
	})
	require.NoError(t, err)
	for _, want := range []string{
		"export default function App()",
		component.DataImport,
		"ChartJS.register",
		"dark theme",
		"Array.isArray(data)",
		`"Sex": text`,
		`"Age": numeric, range 30 to 41`,
		"Detected intent: pie",
		"`Pie` component",
		"show gender distribution",
		"Sample rows:",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Previous Attempt Failed")
}

func TestBuild_Retry(t *testing.T) {
	b := newBuilder(t)
	msg := "entry: entry component App must take no parameters\n  at line 3"

	build, err := b.Build(Input{
		Summary:       summary(t),
		Intent:        intent.Bar,
		UserQuery:     "bar of age",
		PreviousError: &failure.Context{Stage: failure.StageValidation, Message: msg},
		Attempt:       1,
	})
	require.NoError(t, err)
	assert.Contains(t, build, "build-time, validation")
	assert.Contains(t, build, msg, "previous error must appear verbatim")

	runtime, err := b.Build(Input{
		Summary:       summary(t),
		Intent:        "heatmap",
		UserQuery:     "bar of age",
		PreviousError: &failure.Context{Stage: failure.StageRuntime, Message: "TypeError: x is undefined"},
	})
	require.NoError(t, err)
	assert.Contains(t, runtime, "RUNTIME bug")
	assert.Contains(t, runtime, "TypeError: x is undefined")
	assert.Contains(t, runtime, "Detected intent: generic")
}

func TestComponents(t *testing.T) {
	ctx := context.Background()
	term := TerminalComponent(3, `bad "quote"`+"\n</script>")
	assert.Contains(t, term, "Could not generate a visualization after 3 attempts")
	assert.Contains(t, term, `const message = "bad \"quote\"\n</script>";`)
	assert.Empty(t, component.CheckSyntax(term))

	m, err := component.Parse(ctx, []byte(term))
	require.NoError(t, err)
	require.NotNil(t, m.Entry)
	assert.True(t, m.Entry.DefaultExported)
	assert.True(t, m.Entry.ZeroArg())

	assert.Empty(t, component.CheckSyntax(RuntimeExhaustedComponent(2, "boom")))
	assert.Contains(t, IngestFailureComponent(), "Error: Could not fetch CSV file")
	assert.Empty(t, component.CheckSyntax(IngestFailureComponent()))
}
