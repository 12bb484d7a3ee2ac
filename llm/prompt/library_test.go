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

package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuiltinLibrary(t *testing.T) {
	lib, err := NewLibrary("")
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	for _, name := range []string{NameComponent, NameRetryBuild, NameRetryRuntime} {
		if _, err := lib.Get(name); err != nil {
			t.Errorf("missing builtin %s: %v", name, err)
		}
	}
	if _, err := lib.Get("nope"); err == nil {
		t.Error("expected error for unknown prompt")
	}

	msg := "Cannot read property 'map' of undefined <at> App.tsx:12"
	out, err := lib.Render(NameRetryRuntime, map[string]any{"Message": msg})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, msg) {
		t.Errorf("runtime prompt must carry the message verbatim:\n%s", out)
	}
	if _, err := lib.Render(NameRetryBuild, map[string]any{"Message": msg}); err == nil {
		t.Error("expected missing key error for retry-build without Stage/Attempt")
	}
}

func TestLibraryOverride(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("component.md", "---\nname: component\ndescription: custom\n---\nCustom contract.")
	write("notes.txt", "ignored")

	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	tpl, _ := lib.Get(NameComponent)
	if tpl.String() != "Custom contract." || tpl.Origin != filepath.Join(dir, "component.md") {
		t.Errorf("override not applied: %q from %s", tpl.String(), tpl.Origin)
	}
	if len(lib.List()) != 3 {
		t.Errorf("expected 3 templates, got %d", len(lib.List()))
	}

	write("broken.md", "no frontmatter")
	if err := lib.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if tpl, _ := lib.Get(NameComponent); tpl.String() != "Custom contract." {
		t.Error("failed reload must keep the previous set")
	}
}

func TestParseTemplate(t *testing.T) {
	if _, err := ParseTemplate("x", []byte("---\ndescription: d\n---\nbody")); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := ParseTemplate("x", []byte("---\nname: a\nbody")); err == nil {
		t.Error("expected error for unclosed frontmatter")
	}
	tpl, err := ParseTemplate("x", []byte("---\r\nname: a\r\n---\r\nHi {{ .Who }}"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := tpl.Render(map[string]string{"Who": "there"})
	if err != nil || out != "Hi there" {
		t.Errorf("got %q %v", out, err)
	}
}

func TestLibraryWatch(t *testing.T) {
	dir := t.TempDir()
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	path := filepath.Join(dir, "component.md")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = os.WriteFile(path, []byte("---\nname: component\n---\nHot."), 0o644)
		time.Sleep(100 * time.Millisecond)
		if tpl, _ := lib.Get(NameComponent); tpl.String() == "Hot." {
			return
		}
	}
	t.Fatal("library did not reload")
}
