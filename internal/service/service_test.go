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

package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/vizcoder/internal/pipeline/steps"
	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/feedback"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/llm"
	"github.com/cloudwego/vizcoder/llm/prompt"
)

const pieModule = `import { Pie } from 'react-chartjs-2';

export default function App() {
  const counts = {};
  data.forEach((r) => { counts[r.Sex] = (counts[r.Sex] || 0) + 1; });
  return <Pie data={{ labels: Object.keys(counts), datasets: [{ data: Object.values(counts) }] }} />;
}
`

func csvServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sex.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Sex\nMale\nFemale\nMale\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newService(t *testing.T, gen llm.Generator) *Service {
	t.Helper()
	lib, err := prompt.NewLibrary("")
	require.NoError(t, err)
	return New(gen, lib, Options{Build: steps.Options{MaxRetry: 2}})
}

func TestRun_PieScenario(t *testing.T) {
	srv := csvServer(t)
	var prompts []string
	svc := newService(t, llm.GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		prompts = append(prompts, input)
		return pieModule, nil
	}))

	out, err := svc.Run(context.Background(), generate.NewRequest(srv.URL+"/sex.csv", "show gender distribution as a pie chart"))
	require.NoError(t, err)
	assert.Equal(t, intent.Pie, out.Intent)
	assert.True(t, out.Valid)
	assert.Equal(t, 1, out.Attempts)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], `"Sex"`)
	assert.Contains(t, out.Code, "import { data } from './data';")
	assert.Contains(t, out.Code, "ArcElement")
	assert.Contains(t, out.Code, "ChartJS.register(")
	require.NotNil(t, out.Dataset)
	assert.Equal(t, 3, out.Dataset.Len())
}

func TestRun_IngestFailure(t *testing.T) {
	srv := csvServer(t)
	var calls int32
	svc := newService(t, llm.GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return pieModule, nil
	}))

	out, err := svc.Run(context.Background(), generate.NewRequest(srv.URL+"/missing.csv", "pie"))
	require.Error(t, err)
	assert.True(t, failure.IsFatal(err))
	assert.True(t, out.Terminal)
	assert.Contains(t, out.Code, "Error: Could not fetch CSV file")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "ingest failures are not retried")
	last, ok := out.LastError()
	require.True(t, ok)
	assert.Equal(t, failure.StageIngest, last.Stage)
}

func TestRun_LocalFileURL(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.csv")
	require.NoError(t, os.WriteFile(secret, []byte("token\nhunter2\n"), 0o600))
	var prompts []string
	gen := llm.GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		prompts = append(prompts, input)
		return pieModule, nil
	})

	out, err := newService(t, gen).Run(context.Background(), generate.NewRequest("file://"+secret, "show a table"))
	require.Error(t, err)
	stage, _ := failure.StageOf(err)
	assert.Equal(t, failure.StageIngest, stage)
	assert.Empty(t, prompts)
	assert.NotContains(t, out.Code, "hunter2")

	lib, err := prompt.NewLibrary("")
	require.NoError(t, err)
	local := New(gen, lib, Options{Build: steps.Options{MaxRetry: 2}, Ingest: dataset.Options{AllowFile: true}})
	out, err = local.Run(context.Background(), generate.NewRequest("file://"+secret, "show a table"))
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "hunter2")
	require.NotNil(t, out.Dataset)
	assert.Equal(t, 1, out.Dataset.Len())
}

func TestRun_MissingFields(t *testing.T) {
	svc := newService(t, llm.GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		t.Fatal("generator must not be called")
		return "", nil
	}))
	out, err := svc.Run(context.Background(), generate.NewRequest("", "pie"))
	stage, _ := failure.StageOf(err)
	assert.Equal(t, failure.StageConfig, stage)
	assert.True(t, strings.HasPrefix(out.Code, "export default function App()"))
}

func TestService_RuntimeLoop(t *testing.T) {
	srv := csvServer(t)
	var prompts []string
	svc := newService(t, llm.GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		prompts = append(prompts, input)
		return pieModule, nil
	}))
	loop := svc.NewLoop(feedback.DefaultMaxRetry)
	ctx := context.Background()

	first := loop.Start(ctx, srv.URL+"/sex.csv", "pie of sex")
	require.Equal(t, feedback.OutcomeGenerated, first.Outcome)
	resp := loop.ReportRuntimeError(ctx, first.TurnID, "Cannot read property 'map' of undefined")
	require.Equal(t, feedback.OutcomeRegenerated, resp.Outcome)
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Cannot read property 'map' of undefined")
	assert.Contains(t, prompts[1], "runtime")
}
