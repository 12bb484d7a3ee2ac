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
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/vizcoder/internal/utils"
	"github.com/cloudwego/vizcoder/llm/log"
)

//go:embed templates/*.md
var builtin embed.FS

// Library holds the prompt templates. Builtin templates are always present;
// a directory of *.md files may override them by name.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
	dir       string
}

// NewLibrary loads the builtin templates and, when dir is not empty, the
// overrides found there.
func NewLibrary(dir string) (*Library, error) {
	l := &Library{dir: dir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rebuilds the template set from scratch. On error the previous set
// stays in place.
func (l *Library) Reload() error {
	set := make(map[string]*Template)
	err := fs.WalkDir(builtin, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := builtin.ReadFile(path)
		if err != nil {
			return err
		}
		t, err := ParseTemplate("builtin", content)
		if err != nil {
			return err
		}
		set[t.Name] = t
		return nil
	})
	if err != nil {
		return fmt.Errorf("load builtin prompts: %w", err)
	}

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil {
			return fmt.Errorf("read prompt dir %s: %w", l.dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			path := filepath.Join(l.dir, e.Name())
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read prompt %s: %w", path, err)
			}
			t, err := ParseTemplate(path, content)
			if err != nil {
				return err
			}
			set[t.Name] = t
		}
	}

	l.mu.Lock()
	l.templates = set
	l.mu.Unlock()
	return nil
}

// Get returns the named template.
func (l *Library) Get(name string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", name)
	}
	return t, nil
}

// Render executes the named template.
func (l *Library) Render(name string, data any) (string, error) {
	t, err := l.Get(name)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}

// List returns all templates sorted by name.
func (l *Library) List() []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Template, 0, len(l.templates))
	for _, t := range l.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Watch reloads the library whenever the override directory changes. It
// blocks until ctx is done.
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		<-ctx.Done()
		return nil
	}
	return utils.WatchDir(ctx, l.dir, 200*time.Millisecond, func() {
		if err := l.Reload(); err != nil {
			log.Error("reload prompts from %s: %v", l.dir, err)
			return
		}
		log.Info("reloaded prompts from %s", l.dir)
	})
}
