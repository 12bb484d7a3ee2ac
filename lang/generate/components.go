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

package generate

import (
	"fmt"

	"github.com/cloudwego/vizcoder/internal/utils"
)

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, err := utils.MarshalJSONBytes(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

const terminalTemplate = `export default function App() {
  const message = %s;
  return (
    <div style={{ minHeight: '100vh', background: '#121212', color: '#e0e0e0', padding: 24, fontFamily: 'sans-serif' }}>
      <h2 style={{ color: '#ff6b6b' }}>Could not generate a visualization after %d attempts</h2>
      <pre style={{ whiteSpace: 'pre-wrap', color: '#bdbdbd' }}>{message}</pre>
    </div>
  );
}
`

// TerminalComponent is shown when the build budget is exhausted.
func TerminalComponent(attempts int, lastError string) string {
	return fmt.Sprintf(terminalTemplate, jsString(lastError), attempts)
}

const exhaustedTemplate = `export default function App() {
  const message = %s;
  return (
    <div style={{ minHeight: '100vh', background: '#121212', color: '#e0e0e0', padding: 24, fontFamily: 'sans-serif' }}>
      <h2 style={{ color: '#ffb74d' }}>The visualization kept failing while rendering</h2>
      <p>Automatic repair stopped after %d attempts. Try rephrasing your request.</p>
      <pre style={{ whiteSpace: 'pre-wrap', color: '#bdbdbd' }}>{message}</pre>
    </div>
  );
}
`

// RuntimeExhaustedComponent is shown when the runtime budget is exhausted.
func RuntimeExhaustedComponent(attempts int, lastError string) string {
	return fmt.Sprintf(exhaustedTemplate, jsString(lastError), attempts)
}

// IngestFailureComponent is shown when the dataset could not be fetched.
func IngestFailureComponent() string {
	return `export default function App() {
  return <div style={{ background: '#121212', color: '#e0e0e0', padding: 24 }}>Error: Could not fetch CSV file</div>;
}
`
}
