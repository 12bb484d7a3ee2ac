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

// Package sanitize rewrites a raw completion into a component that meets the
// structural contract. Every rewrite is computed from a fresh syntax tree and
// applied as byte-range edits, so a conformant module passes through
// unchanged.
package sanitize

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/vizcoder/lang/component"
	"github.com/cloudwego/vizcoder/llm/log"
)

// DefaultLoadingDelay is the synthetic delay of the injected loading scaffold.
const DefaultLoadingDelay = 300 * time.Millisecond

// Step names, in application order.
const (
	StepFences   = "strip-fences"
	StepEntry    = "normalize-entry"
	StepData     = "data-import"
	StepCharts   = "chart-registration"
	StepLoading  = "loading-scaffold"
	StepTables   = "table-classes"
	StepFallback = "dataset-fallback"
)

// Options configures a Sanitizer.
type Options struct {
	LoadingDelay time.Duration
}

// Report describes what Sanitize did.
type Report struct {
	// Applied lists the steps that changed the source, in order.
	Applied []string `json:"applied,omitempty"`
	// Fallback is set when the source was replaced by the dataset fallback.
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
	// Skipped lists steps whose edits could not be applied.
	Skipped []string `json:"skipped,omitempty"`
}

// Changed reports whether the output differs from the stripped input.
func (r Report) Changed() bool {
	return len(r.Applied) > 0 || r.Fallback
}

type stepFunc func(s *Sanitizer, m *component.Module) []component.Edit

type step struct {
	name string
	fn   stepFunc
}

// Sanitizer is stateless apart from its options and safe for concurrent use.
type Sanitizer struct {
	opts  Options
	steps []step
}

// New returns a Sanitizer with the given options.
func New(opts Options) *Sanitizer {
	if opts.LoadingDelay <= 0 {
		opts.LoadingDelay = DefaultLoadingDelay
	}
	return &Sanitizer{
		opts: opts,
		steps: []step{
			{StepEntry, normalizeEntry},
			{StepData, ensureDataImport},
			{StepCharts, ensureChartRegistration},
			{StepLoading, ensureLoadingScaffold},
			{StepTables, normalizeTables},
		},
	}
}

// Sanitize rewrites raw. headers describe the dataset for the fallback
// component. It never fails: when no entry component survives the rewrites
// the dataset fallback is returned.
func (s *Sanitizer) Sanitize(ctx context.Context, raw string, headers []string) (string, Report) {
	var rep Report
	src, stripped := StripFences(raw)
	if stripped {
		rep.Applied = append(rep.Applied, StepFences)
	}
	if src == "" {
		return s.fallback(headers, "empty completion", rep)
	}

	for _, st := range s.steps {
		m, err := component.Parse(ctx, []byte(src))
		if err != nil {
			log.Error("sanitize: %s: %v", st.name, err)
			rep.Skipped = append(rep.Skipped, st.name)
			continue
		}
		edits := st.fn(s, m)
		if len(edits) == 0 {
			continue
		}
		out, err := component.Apply(m.Source, edits)
		if err != nil {
			log.Error("sanitize: %s: %v", st.name, err)
			rep.Skipped = append(rep.Skipped, st.name)
			continue
		}
		log.Debug("sanitize: applied %s (%d edits)", st.name, len(edits))
		src = string(out)
		rep.Applied = append(rep.Applied, st.name)
	}

	m, err := component.Parse(ctx, []byte(src))
	switch {
	case err != nil:
		return s.fallback(headers, err.Error(), rep)
	case m.Entry == nil:
		return s.fallback(headers, "no entry component found", rep)
	}
	return finish(src), rep
}

func (s *Sanitizer) fallback(headers []string, reason string, rep Report) (string, Report) {
	log.Info("sanitize: using dataset fallback: %s", reason)
	rep.Fallback = true
	rep.Reason = reason
	rep.Applied = append(rep.Applied, StepFallback)
	return Fallback(headers), rep
}

func finish(src string) string {
	return strings.TrimSpace(src) + "\n"
}

var fenceRE = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[^\\S\\n]*\\n(.*?)```")

// StripFences returns the longest fenced block of raw, or raw itself, trimmed.
// An unterminated opening fence is dropped.
func StripFences(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	best, found := "", false
	for _, m := range fenceRE.FindAllStringSubmatch(text, -1) {
		found = true
		if len(m[1]) > len(best) {
			best = m[1]
		}
	}
	if found {
		return strings.TrimSpace(best), true
	}
	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			return strings.TrimSpace(text[i+1:]), true
		}
		return "", true
	}
	return text, false
}
