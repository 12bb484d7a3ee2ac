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

package intent

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := Default()
	cases := []struct {
		query string
		want  Intent
	}{
		{"show gender distribution as a pie chart", Pie},
		{"Bar chart of sales by region", Bar},
		{"revenue trend by bar", Bar},
		{"show the sales TREND over time", Line},
		{"plot it over time please", Line},
		{"what is the percentage of each category", Pie},
		{"correlation of age and income", Scatter},
		{"spider plot of skills", Radar},
		{"list all customers", Table},
		{"show me the raw data", Table},
		{"give me an overview", Summary},
		{"key statistics", Summary},
		{"columns in the file", Bar},
		{"something nice", Generic},
		{"", Generic},
		{"barely visible timeline", Line},
		{"online shoppers", Generic},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.query))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := Default()
	q := "bar and trend and pie"
	first := c.Classify(q)
	for i := 0; i < 50; i++ {
		if got := c.Classify(q); got != first {
			t.Fatalf("run %d: got %s want %s", i, got, first)
		}
	}
	if first != Bar {
		t.Fatalf("priority: got %s", first)
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(`
- intent: table
  phrases: [grid]
- intent: line
  phrases: [bar]
`))
	require.NoError(t, err)
	c, err := NewClassifier(rules)
	require.NoError(t, err)
	assert.Equal(t, Line, c.Classify("bar please"))
	assert.Equal(t, Table, c.Classify("a grid of bars"))
	assert.Equal(t, Generic, c.Classify("pie"))

	_, err = NewClassifier([]Rule{{Intent: "heatmap", Phrases: []string{"heat"}}})
	assert.EqualError(t, err, `invalid intent "heatmap" in rules`)
	_, err = LoadRules(strings.NewReader("intent: [oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse intent rules: ")
	assert.NotEqual(t, err, errors.Cause(err), "the yaml error is kept as the cause")
	_, traced := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, traced)
}

func TestChartComponent(t *testing.T) {
	assert.Equal(t, "Pie", Pie.ChartComponent())
	assert.Equal(t, "", Table.ChartComponent())
	assert.True(t, Summary.Valid())
	assert.False(t, Intent("heatmap").Valid())
}
