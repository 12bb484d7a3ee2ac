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

package sanitize

import (
	"strconv"
	"strings"

	"github.com/cloudwego/vizcoder/internal/utils"
)

// FallbackRows caps the rows rendered by the dataset fallback.
const FallbackRows = 100

// Fallback renders the deterministic dataset table. It satisfies every
// rewrite rule, so sanitizing it again is a no-op.
func Fallback(headers []string) string {
	if headers == nil {
		headers = []string{}
	}
	list, err := utils.MarshalJSONBytes(headers)
	if err != nil {
		list = []byte("[]")
	}
	r := strings.NewReplacer(
		"{{HEADERS}}", string(list),
		"{{ROWS}}", strconv.Itoa(FallbackRows),
		"{{TABLE}}", TableClasses["table"],
		"{{THEAD}}", TableClasses["thead"],
		"{{TH}}", TableClasses["th"],
		"{{TD}}", TableClasses["td"],
	)
	return r.Replace(fallbackTemplate)
}

const fallbackTemplate = `import { useEffect, useState } from 'react';
import { data } from './data';

const HEADERS = {{HEADERS}};

export default function App() {
  const [loading, setLoading] = useState(true);

  useEffect(() => {
    setLoading(false);
  }, []);

  const rows = Array.isArray(data) ? data.slice(0, {{ROWS}}) : [];
  const headers = HEADERS.length > 0 ? HEADERS : Object.keys(rows[0] || {});

  if (loading) {
    return <div className="min-h-screen bg-gray-900 p-6 text-gray-300">Loading...</div>;
  }

  if (rows.length === 0) {
    return <div className="min-h-screen bg-gray-900 p-6 text-gray-300">No data available</div>;
  }

  return (
    <div className="min-h-screen overflow-x-auto bg-gray-900 p-6">
      <table className="{{TABLE}}">
        <thead className="{{THEAD}}">
          <tr>
            {headers.map((h) => (
              <th key={h} className="{{TH}}">{h}</th>
            ))}
          </tr>
        </thead>
        <tbody>
          {rows.map((row, i) => (
            <tr key={i}>
              {headers.map((h) => (
                <td key={h} className="{{TD}}">{row[h] == null ? '' : String(row[h])}</td>
              ))}
            </tr>
          ))}
        </tbody>
      </table>
    </div>
  );
}
`
