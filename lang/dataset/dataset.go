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

// Package dataset ingests delimited tabular text into an immutable Dataset.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Record maps header names to typed values: string, float64, bool or nil.
// Keys are always a subset of the owning Dataset's headers.
type Record map[string]any

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an ordered header list plus ordered records. It is immutable
// once built; accessors return copies.
type Dataset struct {
	source  string
	headers []string
	index   map[string]int
	rows    []Record
}

// New builds a Dataset, checking that headers are unique and every record
// only uses known headers.
func New(source string, headers []string, rows []Record) (*Dataset, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; dup {
			return nil, errors.Errorf("duplicate header %q", h)
		}
		index[h] = i
	}
	own := make([]Record, 0, len(rows))
	for i, r := range rows {
		for k := range r {
			if _, ok := index[k]; !ok {
				return nil, errors.Errorf("row %d: unknown field %q", i, k)
			}
		}
		own = append(own, r.clone())
	}
	return &Dataset{
		source:  source,
		headers: append([]string(nil), headers...),
		index:   index,
		rows:    own,
	}, nil
}

// Source is the location the dataset was ingested from.
func (d *Dataset) Source() string { return d.source }

// Headers returns the ordered header list.
func (d *Dataset) Headers() []string {
	return append([]string(nil), d.headers...)
}

// Len is the number of records.
func (d *Dataset) Len() int { return len(d.rows) }

// Row returns a copy of the i-th record.
func (d *Dataset) Row(i int) Record {
	return d.rows[i].clone()
}

// Records returns copies of the first n records, or all when n <= 0.
func (d *Dataset) Records(n int) []Record {
	if n <= 0 || n > len(d.rows) {
		n = len(d.rows)
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = d.rows[i].clone()
	}
	return out
}

// HasHeader reports whether name is one of the headers.
func (d *Dataset) HasHeader(name string) bool {
	_, ok := d.index[name]
	return ok
}

// MarshalJSON encodes the records as an array of objects whose keys follow
// header order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range d.rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := d.writeRecord(&buf, r); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (d *Dataset) writeRecord(buf *bytes.Buffer, r Record) error {
	buf.WriteByte('{')
	first := true
	for _, h := range d.headers {
		v, ok := r[h]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(h)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// Module renders the ES module that backs the generated code's data import.
func (d *Dataset) Module() (string, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return fmt.Sprintf("export const data = %s;\n\nexport default data;\n", buf.String()), nil
}
