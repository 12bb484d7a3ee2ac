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

package dataset

import (
	"fmt"
	"sort"
)

// ColumnKind is the inferred type of a column.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindBoolean ColumnKind = "boolean"
	KindText    ColumnKind = "text"
	KindMixed   ColumnKind = "mixed"
	KindEmpty   ColumnKind = "empty"
)

const (
	maxTrackedValues = 1000
	topValuesLimit   = 5
)

// CategoryCount is one frequent value of a text column.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile summarises one column.
type ColumnProfile struct {
	Name    string     `json:"name"`
	Kind    ColumnKind `json:"kind"`
	NonNull int        `json:"non_null"`
	Missing int        `json:"missing"`
	// Unique is capped at 1000 distinct values.
	Unique    int             `json:"unique"`
	Min       *float64        `json:"min,omitempty"`
	Max       *float64        `json:"max,omitempty"`
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

// Summary is the schema description handed to the prompt.
type Summary struct {
	Source   string          `json:"source"`
	Headers  []string        `json:"headers"`
	RowCount int             `json:"row_count"`
	Columns  []ColumnProfile `json:"columns"`
	Samples  []Record        `json:"samples,omitempty"`
}

// Summarize profiles every column and keeps the first sampleRows records.
func (d *Dataset) Summarize(sampleRows int) Summary {
	s := Summary{
		Source:   d.source,
		Headers:  d.Headers(),
		RowCount: len(d.rows),
		Columns:  make([]ColumnProfile, 0, len(d.headers)),
	}
	if sampleRows > 0 {
		s.Samples = d.Records(sampleRows)
	}
	for _, h := range d.headers {
		s.Columns = append(s.Columns, d.profile(h))
	}
	return s
}

func (d *Dataset) profile(name string) ColumnProfile {
	p := ColumnProfile{Name: name}
	var nums, bools, texts int
	counts := make(map[string]int)
	for _, r := range d.rows {
		v, ok := r[name]
		if !ok || v == nil {
			p.Missing++
			continue
		}
		p.NonNull++
		key := fmt.Sprint(v)
		if _, seen := counts[key]; seen || len(counts) < maxTrackedValues {
			counts[key]++
		}
		switch x := v.(type) {
		case float64:
			nums++
			if p.Min == nil || x < *p.Min {
				p.Min = ptr(x)
			}
			if p.Max == nil || x > *p.Max {
				p.Max = ptr(x)
			}
		case bool:
			bools++
		default:
			texts++
		}
	}
	p.Unique = len(counts)

	switch {
	case p.NonNull == 0:
		p.Kind = KindEmpty
	case nums == p.NonNull:
		p.Kind = KindNumeric
	case bools == p.NonNull:
		p.Kind = KindBoolean
	case texts == p.NonNull:
		p.Kind = KindText
	default:
		p.Kind = KindMixed
	}
	if p.Kind != KindNumeric {
		p.Min, p.Max = nil, nil
	}
	if p.Kind == KindText || p.Kind == KindMixed || p.Kind == KindBoolean {
		p.TopValues = topValues(counts, topValuesLimit)
	}
	return p
}

func topValues(counts map[string]int, limit int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ptr(f float64) *float64 { return &f }
