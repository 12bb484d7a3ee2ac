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
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveCSV(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/data.csv"
}

func TestIngest_Scenario(t *testing.T) {
	url := serveCSV(t, http.StatusOK, "Sex\nMale\nFemale\nMale\n")
	ds, err := NewIngestor(Options{}).Ingest(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex"}, ds.Headers())
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, Record{"Sex": "Female"}, ds.Row(1))
	assert.Equal(t, url, ds.Source())
}

func TestIngest_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("non 2xx", func(t *testing.T) {
		_, err := NewIngestor(Options{}).Ingest(ctx, serveCSV(t, http.StatusNotFound, "nope"))
		require.Error(t, err)
		stage, ok := failure.StageOf(err)
		assert.True(t, ok)
		assert.Equal(t, failure.StageIngest, stage)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := NewIngestor(Options{}).Ingest(ctx, serveCSV(t, http.StatusOK, ""))
		require.Error(t, err)
		assert.True(t, failure.IsFatal(err))
	})

	t.Run("too large", func(t *testing.T) {
		_, err := NewIngestor(Options{MaxBytes: 8}).Ingest(ctx, serveCSV(t, http.StatusOK, "a,b\n1,2\n3,4\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds")
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := NewIngestor(Options{}).Ingest(ctx, "http://127.0.0.1:0/missing.csv")
		require.Error(t, err)
		assert.True(t, failure.IsFatal(err))
	})
}

func TestIngest_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("month,total\nJan,10\n"), 0o644))
	ds, err := NewIngestor(Options{AllowFile: true}).Ingest(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, Record{"month": "Jan", "total": 10.0}, ds.Row(0))
}

func TestIngest_SchemeRestrictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.csv")
	require.NoError(t, os.WriteFile(path, []byte("token\nhunter2\n"), 0o600))

	for _, url := range []string{"file://" + path, "FILE://" + path, "ftp://example.com/a.csv", "/etc/hosts", "gopher://x"} {
		t.Run(url, func(t *testing.T) {
			ds, err := NewIngestor(Options{}).Ingest(context.Background(), url)
			require.Error(t, err)
			assert.Nil(t, ds)
			stage, ok := failure.StageOf(err)
			require.True(t, ok)
			assert.Equal(t, failure.StageIngest, stage)
			assert.NotContains(t, err.Error(), "hunter2")
		})
	}

	// a custom client does not lift the restriction
	_, err := NewIngestor(Options{Client: http.DefaultClient}).Ingest(context.Background(), "file://"+path)
	require.Error(t, err)
}

func TestParse_DynamicTyping(t *testing.T) {
	body := "name,age,active,score,zip\n" +
		"Ann,31,true,4.5,\n" +
		"\n" +
		" , , , , \n" +
		"Bob,-2,FALSE,1e3,9007199254740993\n"
	ds, err := Parse("inline", strings.NewReader(body), 0)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, Record{"name": "Ann", "age": 31.0, "active": true, "score": 4.5, "zip": nil}, ds.Row(0))
	bob := ds.Row(1)
	assert.Equal(t, -2.0, bob["age"])
	assert.Equal(t, false, bob["active"])
	assert.Equal(t, 1000.0, bob["score"])
	assert.Equal(t, "9007199254740993", bob["zip"], "unsafe integers stay strings")
}

func TestParse_RowShapes(t *testing.T) {
	ds, err := Parse("inline", strings.NewReader("a,b,a,\n1\n1,2,3,4,5\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a_1", "column_4"}, ds.Headers())

	headers := map[string]bool{}
	for _, h := range ds.Headers() {
		headers[h] = true
	}
	for i := 0; i < ds.Len(); i++ {
		for k := range ds.Row(i) {
			assert.True(t, headers[k], "row %d has key %q outside headers", i, k)
		}
	}
	assert.Len(t, ds.Row(0), 1)
	assert.Len(t, ds.Row(1), 4)
}

func TestParse_Delimiters(t *testing.T) {
	for name, body := range map[string]string{
		"semicolon": "city;temp\nOslo;3\n",
		"tab":       "city\ttemp\nOslo\t3\n",
		"pipe":      "city|temp\nOslo|3\n",
		"quoted":    "\"city, name\",temp\n\"Oslo, NO\",3\n",
	} {
		t.Run(name, func(t *testing.T) {
			ds, err := Parse(name, strings.NewReader(body), 0)
			require.NoError(t, err)
			require.Len(t, ds.Headers(), 2)
			assert.Equal(t, 3.0, ds.Row(0)["temp"])
		})
	}
}

func TestParse_BOM(t *testing.T) {
	ds, err := Parse("bom", strings.NewReader("\ufeffid,v\n1,2\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v"}, ds.Headers())
}

func TestNew_Invariants(t *testing.T) {
	_, err := New("x", []string{"a", "a"}, nil)
	assert.EqualError(t, err, `duplicate header "a"`)
	_, traced := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, traced)
	_, err = New("x", []string{"a"}, []Record{{"b": 1.0}})
	assert.EqualError(t, err, `row 0: unknown field "b"`)

	rows := []Record{{"a": 1.0}}
	ds, err := New("x", []string{"a"}, rows)
	require.NoError(t, err)
	rows[0]["a"] = 2.0
	assert.Equal(t, 1.0, ds.Row(0)["a"], "dataset must not alias caller rows")
	r := ds.Row(0)
	r["a"] = 3.0
	assert.Equal(t, 1.0, ds.Row(0)["a"], "Row must return a copy")
}

func TestModule(t *testing.T) {
	ds, err := New("x", []string{"b", "a"}, []Record{{"a": 1.0, "b": "x"}, {"b": nil}})
	require.NoError(t, err)
	mod, err := ds.Module()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mod, "export const data = ["))
	assert.Contains(t, mod, "export default data;")
	assert.Less(t, strings.Index(mod, `"b": "x"`), strings.Index(mod, `"a": 1`), "keys follow header order")
	assert.Contains(t, mod, `"b": null`)
}

func TestSummarize(t *testing.T) {
	body := "Sex,Age,Member\nMale,30,true\nFemale,,false\nMale,41,true\n"
	ds, err := Parse("people", strings.NewReader(body), 0)
	require.NoError(t, err)

	s := ds.Summarize(2)
	assert.Equal(t, 3, s.RowCount)
	assert.Len(t, s.Samples, 2)
	require.Len(t, s.Columns, 3)

	sex := s.Columns[0]
	assert.Equal(t, KindText, sex.Kind)
	assert.Equal(t, 2, sex.Unique)
	assert.Equal(t, []CategoryCount{{"Male", 2}, {"Female", 1}}, sex.TopValues)

	age := s.Columns[1]
	assert.Equal(t, KindNumeric, age.Kind)
	assert.Equal(t, 1, age.Missing)
	require.NotNil(t, age.Min)
	assert.Equal(t, 30.0, *age.Min)
	assert.Equal(t, 41.0, *age.Max)

	assert.Equal(t, KindBoolean, s.Columns[2].Kind)
}
