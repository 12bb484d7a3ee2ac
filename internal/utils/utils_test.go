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

package utils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWrapError(t *testing.T) {
	if WrapError(nil, "x") != nil {
		t.Fatal("nil must stay nil")
	}
	err := WrapError(io.EOF, "read %s", "a.csv")
	if err.Error() != "read a.csv: EOF" {
		t.Errorf("got %q", err.Error())
	}
}

func TestMarshalJSONBytes(t *testing.T) {
	js, err := MarshalJSONBytes(map[string]string{"code": "<div>a && b</div>"})
	if err != nil {
		t.Fatal(err)
	}
	if string(js) != `{"code":"<div>a && b</div>"}` {
		t.Errorf("got %s", js)
	}
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchDir(ctx, dir, 20*time.Millisecond, func() { changed <- struct{}{} })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	path := filepath.Join(dir, "component.md")
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-tick.C:
			// keep writing until the watcher is registered
			_ = os.WriteFile(path, []byte(time.Now().String()), 0o644)
		case <-deadline:
			t.Fatal("no change notification")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchDir: %v", err)
	}
}
