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
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Prompt is anything that renders to prompt text.
type Prompt interface {
	String() string
}

const (
	NameComponent    = "component"
	NameRetryBuild   = "retry-build"
	NameRetryRuntime = "retry-runtime"

	FrontMatterDelimiter = "---"
)

// Template is a named go-template prompt with YAML frontmatter.
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Origin is "builtin" or the file the template was loaded from.
	Origin string `yaml:"-"`

	body string
	tpl  *template.Template
}

var _ Prompt = (*Template)(nil)

// String returns the raw template body.
func (t *Template) String() string {
	return t.body
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ParseTemplate parses a frontmatter + body document.
func ParseTemplate(origin string, content []byte) (*Template, error) {
	front, body, err := extractFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	t := &Template{Origin: origin, body: body}
	if err := yaml.Unmarshal([]byte(front), t); err != nil {
		return nil, fmt.Errorf("%s: failed to parse YAML frontmatter: %w", origin, err)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("%s: frontmatter has no name", origin)
	}
	tpl, err := template.New(t.Name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	t.tpl = tpl
	return t, nil
}

func extractFrontmatter(content string) (front string, body string, err error) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if !strings.HasPrefix(content, FrontMatterDelimiter) {
		return "", content, fmt.Errorf("no frontmatter found (expected '---' at start)")
	}
	rest := content[len(FrontMatterDelimiter):]
	end := strings.Index(rest, "\n"+FrontMatterDelimiter)
	if end == -1 {
		return "", content, fmt.Errorf("frontmatter not closed")
	}
	front = rest[:end]
	body = rest[end+len(FrontMatterDelimiter)+1:]
	return strings.TrimSpace(front), strings.TrimSpace(body), nil
}
