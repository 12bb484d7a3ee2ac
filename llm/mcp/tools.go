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

package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/lang/sanitize"
)

// Backend is the generation service the tools call into.
type Backend interface {
	Generate(ctx context.Context, req generate.Request) (generate.Result, error)
	Describe(ctx context.Context, url string) (*dataset.Dataset, dataset.Summary, error)
	Classify(query string) intent.Intent
	Sanitize(ctx context.Context, raw string, headers []string) (string, sanitize.Report)
}

const (
	ToolGenerateComponent = "generate_component"
	ToolClassifyIntent    = "classify_intent"
	ToolDescribeDataset   = "describe_dataset"
	ToolSanitizeComponent = "sanitize_component"

	DescGenerateComponent = "Generate a React visualization component for a CSV dataset and a natural-language request. The module default-exports a zero-argument App and imports the rows as `import { data } from './data';`."
	DescClassifyIntent    = "Classify a natural-language request into a visualization intent: bar, line, pie, scatter, radar, table, summary or generic."
	DescDescribeDataset   = "Fetch a CSV dataset and describe its columns: inferred type, range or frequent values, missing counts and sample rows."
	DescSanitizeComponent = "Repair a generated React component so that it satisfies the module contract: fences stripped, zero-argument default export, data import, chart registration, loading state and table classes."
)

var (
	SchemaGenerateComponent = GetJSONSchema(GenerateComponentReq{})
	SchemaClassifyIntent    = GetJSONSchema(ClassifyIntentReq{})
	SchemaDescribeDataset   = GetJSONSchema(DescribeDatasetReq{})
	SchemaSanitizeComponent = GetJSONSchema(SanitizeComponentReq{})
)

type GenerateComponentReq struct {
	FileURL   string `json:"file_url" jsonschema:"description=HTTP(S) or file URL of the CSV dataset"`
	UserQuery string `json:"user_query" jsonschema:"description=what the visualization should show"`
	// RuntimeError is an error the previous component threw while rendering.
	RuntimeError string `json:"runtime_error,omitempty" jsonschema:"description=error thrown by the previously generated component at runtime when regenerating"`
	Attempt      int    `json:"attempt,omitempty" jsonschema:"description=runtime retry number or 0 for a fresh request"`
}

type GenerateComponentResp struct {
	Code     string            `json:"code"`
	Valid    bool              `json:"valid"`
	Intent   intent.Intent     `json:"intent"`
	Attempts int               `json:"attempts"`
	Fallback bool              `json:"fallback,omitempty"`
	Terminal bool              `json:"terminal,omitempty"`
	Errors   []failure.Context `json:"errors,omitempty"`
}

type ClassifyIntentReq struct {
	Query string `json:"query" jsonschema:"description=the natural-language request"`
}

type ClassifyIntentResp struct {
	Intent intent.Intent `json:"intent"`
	Chart  string        `json:"chart,omitempty"`
}

type DescribeDatasetReq struct {
	FileURL    string `json:"file_url" jsonschema:"description=HTTP(S) or file URL of the CSV dataset"`
	SampleRows int    `json:"sample_rows,omitempty" jsonschema:"description=number of sample rows to include (default 5)"`
}

type SanitizeComponentReq struct {
	Code    string   `json:"code" jsonschema:"description=raw model output or component source"`
	Headers []string `json:"headers,omitempty" jsonschema:"description=dataset headers used by the fallback table"`
}

type SanitizeComponentResp struct {
	Code   string          `json:"code"`
	Report sanitize.Report `json:"report"`
}

type toolSet struct {
	backend Backend
}

func (t toolSet) GenerateComponent(ctx context.Context, req GenerateComponentReq) (*GenerateComponentResp, error) {
	gr := generate.NewRequest(req.FileURL, req.UserQuery)
	if msg := strings.TrimSpace(req.RuntimeError); msg != "" {
		cause := failure.Runtime("%s", msg).Context()
		gr.PreviousError = &cause
		gr.Attempt = req.Attempt
	}
	res, err := t.backend.Generate(ctx, gr)
	if err != nil {
		return nil, err
	}
	return &GenerateComponentResp{
		Code:     res.Code,
		Valid:    res.Valid,
		Intent:   res.Intent,
		Attempts: res.Attempts,
		Fallback: res.Fallback,
		Terminal: res.Terminal,
		Errors:   res.Errors,
	}, nil
}

func (t toolSet) ClassifyIntent(ctx context.Context, req ClassifyIntentReq) (*ClassifyIntentResp, error) {
	it := t.backend.Classify(req.Query)
	return &ClassifyIntentResp{Intent: it, Chart: it.ChartComponent()}, nil
}

func (t toolSet) DescribeDataset(ctx context.Context, req DescribeDatasetReq) (*dataset.Summary, error) {
	ds, summary, err := t.backend.Describe(ctx, req.FileURL)
	if err != nil {
		return nil, err
	}
	if req.SampleRows > 0 {
		summary = ds.Summarize(req.SampleRows)
	}
	return &summary, nil
}

func (t toolSet) SanitizeComponent(ctx context.Context, req SanitizeComponentReq) (*SanitizeComponentResp, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, errors.New("code is required")
	}
	code, rep := t.backend.Sanitize(ctx, req.Code, req.Headers)
	return &SanitizeComponentResp{Code: code, Report: rep}, nil
}

func getTools(b Backend) []Tool {
	ts := toolSet{backend: b}
	return []Tool{
		NewTool(ToolGenerateComponent, DescGenerateComponent, SchemaGenerateComponent, ts.GenerateComponent),
		NewTool(ToolClassifyIntent, DescClassifyIntent, SchemaClassifyIntent, ts.ClassifyIntent),
		NewTool(ToolDescribeDataset, DescDescribeDataset, SchemaDescribeDataset, ts.DescribeDataset),
		NewTool(ToolSanitizeComponent, DescSanitizeComponent, SchemaSanitizeComponent, ts.SanitizeComponent),
	}
}
