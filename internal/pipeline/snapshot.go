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

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
)

// Snapshot is an immutable snapshot of an intermediate artifact. Every
// completion produces a new Snapshot; rollback restores a previous one.
type Snapshot struct {
	Kind    string // KindCompletion or KindComponent
	Hash    string // hex-encoded sha256 of the source text
	Payload any
}

// NewSnapshot creates a snapshot from a payload and its textual form.
// raw is used only to compute the hash.
func NewSnapshot(kind string, payload any, raw []byte) *Snapshot {
	h := sha256.Sum256(raw)
	return &Snapshot{
		Kind:    kind,
		Hash:    hex.EncodeToString(h[:]),
		Payload: payload,
	}
}

// CompletionSnapshot wraps raw model output.
func CompletionSnapshot(text string) *Snapshot {
	return NewSnapshot(KindCompletion, text, []byte(text))
}

// ComponentSnapshot wraps a sanitized module.
func ComponentSnapshot(c *Component) *Snapshot {
	return NewSnapshot(KindComponent, c, []byte(c.Code))
}
