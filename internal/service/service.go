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

// Package service wires ingestion, classification and the build pipeline
// into the generation entry point.
package service

import (
	"context"

	"github.com/cloudwego/vizcoder/internal/pipeline"
	"github.com/cloudwego/vizcoder/internal/pipeline/steps"
	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/feedback"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/lang/sanitize"
	"github.com/cloudwego/vizcoder/llm"
	"github.com/cloudwego/vizcoder/llm/log"
	"github.com/cloudwego/vizcoder/llm/prompt"
)

// DefaultSampleRows is the number of records shown to the model.
const DefaultSampleRows = 5

// Options configures a Service.
type Options struct {
	Ingest     dataset.Options
	SampleRows int
	Sanitize   sanitize.Options
	Build      steps.Options
	// Classifier overrides the default intent rules.
	Classifier *intent.Classifier
}

// Service is the generation entry point. It is safe for concurrent use;
// every call owns its dataset and budgets.
type Service struct {
	ingestor   *dataset.Ingestor
	classifier *intent.Classifier
	sanitizer  *sanitize.Sanitizer
	controller *pipeline.Controller
	sampleRows int
}

var _ feedback.Regenerator = (*Service)(nil)

// New builds a Service around gen.
func New(gen llm.Generator, lib *prompt.Library, opts Options) *Service {
	if opts.SampleRows <= 0 {
		opts.SampleRows = DefaultSampleRows
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.Default()
	}
	san := sanitize.New(opts.Sanitize)
	return &Service{
		ingestor:   dataset.NewIngestor(opts.Ingest),
		classifier: opts.Classifier,
		sanitizer:  san,
		controller: steps.NewController(gen, generate.NewPromptBuilder(lib), san, opts.Build),
		sampleRows: opts.SampleRows,
	}
}

// Output is a generation result together with the dataset it was built for.
type Output struct {
	generate.Result
	Dataset *dataset.Dataset
}

// Run generates a component for req. Ingest and config failures are fatal
// to the turn: they come back as an error, and the result still carries a
// renderable component.
func (s *Service) Run(ctx context.Context, req generate.Request) (*Output, error) {
	if err := req.Check(); err != nil {
		return fatal(err, generate.TerminalComponent(0, failure.ContextOf(err, failure.StageConfig).Message)), err
	}
	ds, err := s.ingestor.Ingest(ctx, req.SourceURL)
	if err != nil {
		log.Info("ingest %s failed: %v", req.SourceURL, err)
		return fatal(err, generate.IngestFailureComponent()), err
	}
	it := s.classifier.Classify(req.UserQuery)
	log.Debug("classified %q as %s", req.UserQuery, it)

	res := s.controller.Run(ctx, req, pipeline.Input{Intent: it, Summary: ds.Summarize(s.sampleRows)})
	return &Output{Result: res, Dataset: ds}, nil
}

func fatal(err error, code string) *Output {
	stage, _ := failure.StageOf(err)
	return &Output{Result: generate.Result{
		Code:     code,
		Terminal: true,
		Errors:   []failure.Context{failure.ContextOf(err, stage)},
	}}
}

// Generate implements feedback.Regenerator.
func (s *Service) Generate(ctx context.Context, req generate.Request) (generate.Result, error) {
	out, err := s.Run(ctx, req)
	return out.Result, err
}

// Describe fetches the dataset at url and summarises it.
func (s *Service) Describe(ctx context.Context, url string) (*dataset.Dataset, dataset.Summary, error) {
	ds, err := s.ingestor.Ingest(ctx, url)
	if err != nil {
		return nil, dataset.Summary{}, err
	}
	return ds, ds.Summarize(s.sampleRows), nil
}

// Classify returns the intent of query.
func (s *Service) Classify(query string) intent.Intent {
	return s.classifier.Classify(query)
}

// Sanitize runs the sanitizer alone.
func (s *Service) Sanitize(ctx context.Context, raw string, headers []string) (string, sanitize.Report) {
	return s.sanitizer.Sanitize(ctx, raw, headers)
}

// NewLoop returns a runtime feedback loop regenerating through s.
func (s *Service) NewLoop(maxRetry int) *feedback.Loop {
	return feedback.NewLoop(s, maxRetry)
}
