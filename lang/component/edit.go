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
	"sort"

	"github.com/pkg/errors"
)

// Edit replaces the bytes in Span with Text. An empty span inserts.
type Edit struct {
	Span
	Text string
}

// Insert returns an insertion of text at pos.
func Insert(pos uint32, text string) Edit {
	return Edit{Span: Span{Start: pos, End: pos}, Text: text}
}

// Replace returns a replacement of s with text.
func Replace(s Span, text string) Edit {
	return Edit{Span: s, Text: text}
}

// Delete returns a removal of s together with one trailing newline.
func Delete(src []byte, s Span) Edit {
	end := s.End
	if int(end) < len(src) && src[end] == '\n' {
		end++
	}
	return Edit{Span: Span{Start: s.Start, End: end}}
}

// Apply applies non-overlapping edits. Insertions at the same position keep
// their given order.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	out := make([]byte, 0, len(src))
	var cur uint32
	for _, e := range sorted {
		if e.Start < cur || e.End < e.Start || int(e.End) > len(src) {
			return nil, errors.Errorf("edit [%d,%d) overlaps or is out of range", e.Start, e.End)
		}
		out = append(out, src[cur:e.Start]...)
		out = append(out, e.Text...)
		cur = e.End
	}
	out = append(out, src[cur:]...)
	return out, nil
}
