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
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/llm/log"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 20 << 20
)

// Options controls fetching and parsing.
type Options struct {
	// Timeout bounds a single fetch. Default: 30s.
	Timeout time.Duration
	// MaxBytes caps the body size. Default: 20MB.
	MaxBytes int64
	// Delimiter forces a field separator; 0 sniffs among ',', ';', '\t', '|'.
	Delimiter rune
	// Client overrides the HTTP client, e.g. in tests.
	Client *http.Client
	// AllowFile enables file:// URLs. Only local callers such as the CLI
	// set it; remote callers are limited to http and https.
	AllowFile bool
}

// Ingestor fetches a delimited text dataset from a URL.
type Ingestor struct {
	opts   Options
	client *http.Client
}

// NewIngestor creates an Ingestor. It fetches http(s) URLs, and file://
// URLs when opts.AllowFile is set.
func NewIngestor(opts Options) *Ingestor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	client := opts.Client
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if opts.AllowFile {
			tr.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
		}
		client = &http.Client{Transport: tr}
	}
	return &Ingestor{opts: opts, client: client}
}

// Ingest fetches url and parses the body. Every failure is an ingest-stage
// failure and is not retried here.
func (in *Ingestor) Ingest(ctx context.Context, url string) (*Dataset, error) {
	if err := in.checkScheme(url); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, in.opts.Timeout)
	defer cancel()

	log.Debug("fetching dataset %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure.Ingest(err, "invalid dataset url %q", url)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, failure.Ingest(err, "could not fetch dataset")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.Ingest(nil, "could not fetch dataset: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, in.opts.MaxBytes+1))
	if err != nil {
		return nil, failure.Ingest(err, "could not read dataset body")
	}
	if int64(len(body)) > in.opts.MaxBytes {
		return nil, failure.Ingest(nil, "dataset exceeds %d bytes", in.opts.MaxBytes)
	}

	ds, err := parse(url, body, in.opts.Delimiter)
	if err != nil {
		return nil, err
	}
	log.Debug("ingested dataset %s: %d columns, %d rows", url, len(ds.headers), len(ds.rows))
	return ds, nil
}

func (in *Ingestor) checkScheme(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return failure.Ingest(err, "invalid dataset url %q", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	case "file":
		if in.opts.AllowFile {
			return nil
		}
	}
	return failure.Ingest(nil, "unsupported dataset url scheme %q", u.Scheme)
}

// Parse reads delimited text with a header row. delim 0 sniffs the separator.
func Parse(source string, r io.Reader, delim rune) (*Dataset, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, failure.Ingest(err, "could not read dataset")
	}
	return parse(source, body, delim)
}

func parse(source string, body []byte, delim rune) (*Dataset, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if delim == 0 {
		delim = sniffDelimiter(body)
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	raw, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, failure.Ingest(nil, "dataset has no header row")
		}
		return nil, failure.Ingest(err, "could not parse dataset header")
	}
	headers := normalizeHeaders(raw)
	if len(headers) == 0 {
		return nil, failure.Ingest(nil, "dataset has no header row")
	}

	ds := &Dataset{source: source, headers: headers, index: make(map[string]int, len(headers))}
	for i, h := range headers {
		ds.index[h] = i
	}
	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, failure.Ingest(err, "could not parse dataset near line %d", line)
		}
		if blank(fields) {
			continue
		}
		rec := make(Record, len(headers))
		for i, f := range fields {
			if i >= len(headers) {
				break
			}
			rec[headers[i]] = convert(f)
		}
		ds.rows = append(ds.rows, rec)
	}
	return ds, nil
}

// normalizeHeaders trims names, names empty columns and suffixes duplicates
// with _1, _2, ... so headers stay unique.
func normalizeHeaders(raw []string) []string {
	if len(raw) == 1 && strings.TrimSpace(raw[0]) == "" {
		return nil
	}
	taken := make(map[string]bool, len(raw))
	suffix := make(map[string]int)
	out := make([]string, 0, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for taken[name] {
			suffix[h]++
			name = fmt.Sprintf("%s_%d", h, suffix[h])
		}
		taken[name] = true
		out = append(out, name)
	}
	return out
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

var numberPattern = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

const maxSafeInteger = 1<<53 - 1

// convert applies dynamic typing: numeric strings become float64, true/false
// become bool, empty fields become nil, everything else stays a string.
func convert(field string) any {
	switch strings.TrimSpace(field) {
	case "":
		return nil
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	if numberPattern.MatchString(field) {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err == nil && !math.IsInf(f, 0) && math.Abs(f) <= maxSafeInteger {
			return f
		}
	}
	return field
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate appearing most often outside quotes in
// the first line; comma wins ties.
func sniffDelimiter(body []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()
	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		n, quoted := 0, false
		for _, ch := range line {
			switch {
			case ch == '"':
				quoted = !quoted
			case ch == c && !quoted:
				n++
			}
		}
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
