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

// Package intent maps a free-text request to a visualization category.
package intent

import (
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Intent is one of a closed set of visualization categories.
type Intent string

const (
	Bar     Intent = "bar"
	Line    Intent = "line"
	Pie     Intent = "pie"
	Scatter Intent = "scatter"
	Radar   Intent = "radar"
	Table   Intent = "table"
	Summary Intent = "summary"
	Generic Intent = "generic"
)

// All lists every intent in default priority order, Generic last.
var All = []Intent{Bar, Line, Pie, Scatter, Radar, Table, Summary, Generic}

// Valid reports whether i belongs to the closed set.
func (i Intent) Valid() bool {
	for _, x := range All {
		if x == i {
			return true
		}
	}
	return false
}

// ChartComponent is the react-chartjs-2 component that renders the intent,
// or "" when the intent is not a chart.
func (i Intent) ChartComponent() string {
	switch i {
	case Bar:
		return "Bar"
	case Line:
		return "Line"
	case Pie:
		return "Pie"
	case Scatter:
		return "Scatter"
	case Radar:
		return "Radar"
	}
	return ""
}

// Rule binds an intent to its candidate phrases.
type Rule struct {
	Intent  Intent   `yaml:"intent"`
	Phrases []string `yaml:"phrases"`
}

// DefaultRules are evaluated in order; the first rule with a matching phrase wins.
var DefaultRules = []Rule{
	{Intent: Bar, Phrases: []string{"bar", "column", "histogram"}},
	{Intent: Line, Phrases: []string{"line", "trend", "over time", "timeline", "time series"}},
	{Intent: Pie, Phrases: []string{"pie", "donut", "doughnut", "distribution", "percentage", "share", "proportion"}},
	{Intent: Scatter, Phrases: []string{"scatter", "correlation", "relationship between"}},
	{Intent: Radar, Phrases: []string{"radar", "spider"}},
	{Intent: Table, Phrases: []string{"table", "list", "raw data", "rows"}},
	{Intent: Summary, Phrases: []string{"summary", "summarize", "statistics", "stats", "overview"}},
}

// Classifier is a pure keyword matcher over ordered rules.
type Classifier struct {
	rules []compiledRule
}

type compiledRule struct {
	intent  Intent
	phrases [][]string
}

// NewClassifier compiles rules. Phrases are matched case-insensitively on
// whole words; a trailing plural "s" on the last word is accepted.
func NewClassifier(rules []Rule) (*Classifier, error) {
	c := &Classifier{}
	for _, r := range rules {
		if !r.Intent.Valid() || r.Intent == Generic {
			return nil, errors.Errorf("invalid intent %q in rules", r.Intent)
		}
		cr := compiledRule{intent: r.Intent}
		for _, p := range r.Phrases {
			words := tokenize(p)
			if len(words) == 0 {
				continue
			}
			cr.phrases = append(cr.phrases, words)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// Default returns the classifier over DefaultRules.
func Default() *Classifier {
	c, err := NewClassifier(DefaultRules)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultClassifier = Default()

// Classify classifies query with DefaultRules.
func Classify(query string) Intent {
	return defaultClassifier.Classify(query)
}

// LoadRules reads an ordered rule list from YAML:
//
//	- intent: bar
//	  phrases: [bar, column]
func LoadRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil {
		return nil, errors.Wrap(err, "failed to parse intent rules")
	}
	return rules, nil
}

// Classify returns the intent of the first rule with a phrase occurring in
// query, or Generic.
func (c *Classifier) Classify(query string) Intent {
	words := tokenize(query)
	if len(words) == 0 {
		return Generic
	}
	for _, r := range c.rules {
		for _, p := range r.phrases {
			if containsPhrase(words, p) {
				return r.intent
			}
		}
	}
	return Generic
}

func containsPhrase(words, phrase []string) bool {
	n := len(phrase)
	for i := 0; i+n <= len(words); i++ {
		ok := true
		for j := 0; j < n; j++ {
			w := words[i+j]
			if w == phrase[j] {
				continue
			}
			if j == n-1 && w == phrase[j]+"s" {
				continue
			}
			ok = false
			break
		}
		if ok {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
