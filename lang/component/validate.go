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

package component

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Severity classifies a validation issue.
type Severity string

const (
	// SeverityRecoverable issues may be fixed by another generation.
	SeverityRecoverable Severity = "recoverable"
	// SeverityFatal issues cannot be fixed by retrying.
	SeverityFatal Severity = "fatal"
)

// Issue is one failed check.
type Issue struct {
	Check    string   `json:"check"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	return i.Check + ": " + i.Message
}

// ValidationResult aggregates the outcome of Validate.
type ValidationResult struct {
	Ok       bool     `json:"ok"`
	Issues   []Issue  `json:"issues,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// Message joins every issue into a single line.
func (r ValidationResult) Message() string {
	parts := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		parts = append(parts, i.String())
	}
	return strings.Join(parts, "; ")
}

func (r *ValidationResult) add(check, msg string, sev Severity) {
	r.Ok = false
	r.Issues = append(r.Issues, Issue{Check: check, Message: msg, Severity: sev})
	if r.Severity != SeverityFatal {
		r.Severity = sev
	}
}

// ValidateOptions toggles the optional checks.
type ValidateOptions struct {
	// Syntax runs a full TSX transform to catch errors the structural
	// parse tolerates.
	Syntax bool
}

// Validate checks the structural contract: the source parses, has a
// zero-argument default-exported entry and imports the dataset binding.
func Validate(ctx context.Context, src string, opts ValidateOptions) ValidationResult {
	res := ValidationResult{Ok: true}
	if strings.TrimSpace(src) == "" {
		res.add("source", "component source is empty", SeverityRecoverable)
		return res
	}
	m, err := Parse(ctx, []byte(src))
	if err != nil {
		res.add("parse", err.Error(), SeverityFatal)
		return res
	}
	if m.HasErrors {
		res.add("parse", "component source has syntax errors", SeverityRecoverable)
	}
	switch e := m.Entry; {
	case e == nil:
		res.add("entry", "no entry component found", SeverityRecoverable)
	case !e.DefaultExported:
		res.add("entry", fmt.Sprintf("entry component %s is not the default export", nameOr(e.Name)), SeverityRecoverable)
	case !e.ZeroArg():
		res.add("entry", fmt.Sprintf("entry component %s must take no parameters", nameOr(e.Name)), SeverityRecoverable)
	}
	if m.DefaultExports > 1 {
		res.add("entry", fmt.Sprintf("module has %d default exports", m.DefaultExports), SeverityRecoverable)
	}
	if !m.HasDataImport() {
		res.add("data", "missing "+DataImport, SeverityRecoverable)
	}
	for _, name := range m.Redeclared() {
		res.add("redeclared", fmt.Sprintf("identifier %s is declared more than once", name), SeverityRecoverable)
	}
	if opts.Syntax {
		for _, msg := range CheckSyntax(src) {
			res.add("syntax", msg, SeverityRecoverable)
		}
	}
	return res
}

// CheckSyntax transforms src as TSX and returns the reported errors.
func CheckSyntax(src string) []string {
	result := api.Transform(src, api.TransformOptions{
		Loader:     api.LoaderTSX,
		JSX:        api.JSXAutomatic,
		Format:     api.FormatESModule,
		Sourcefile: "App.tsx",
		LogLevel:   api.LogLevelSilent,
	})
	var out []string
	for _, msg := range result.Errors {
		if msg.Location != nil {
			out = append(out, fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		out = append(out, msg.Text)
	}
	return out
}

func nameOr(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}
