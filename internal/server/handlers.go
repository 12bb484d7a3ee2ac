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

package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/feedback"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/llm/log"
)

type errorResponse struct {
	Error string `json:"error"`
	// Code is a renderable component for the failure, when there is one.
	Code string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// missing lists the names of empty fields, given as name/value pairs.
func missing(fields ...string) []string {
	var out []string
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			out = append(out, fields[i])
		}
	}
	return out
}

func writeMissing(w http.ResponseWriter, names []string) {
	writeError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(names, ", "))
}

// writeFatal reports a turn-ending failure with the component the host can
// mount in its place.
func writeFatal(w http.ResponseWriter, err error, code string) {
	msg := failure.ContextOf(err, failure.StageGeneration).Message
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg, Code: code})
}

type generateRequest struct {
	FileURL   string `json:"fileUrl"`
	UserQuery string `json:"userQuery"`
}

type generateResponse struct {
	Code     string        `json:"code"`
	Valid    bool          `json:"valid"`
	Intent   intent.Intent `json:"intent"`
	Attempts int           `json:"attempts"`
	Fallback bool          `json:"fallback"`
	Terminal bool          `json:"terminal,omitempty"`
}

func toResponse(res generate.Result) generateResponse {
	return generateResponse{
		Code:     res.Code,
		Valid:    res.Valid,
		Intent:   res.Intent,
		Attempts: res.Attempts,
		Fallback: res.Fallback,
		Terminal: res.Terminal,
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if m := missing("fileUrl", req.FileURL, "userQuery", req.UserQuery); len(m) > 0 {
		writeMissing(w, m)
		return
	}
	res, err := s.cfg.Generator.Generate(r.Context(), generate.NewRequest(req.FileURL, req.UserQuery))
	if err != nil {
		writeFatal(w, err, res.Code)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

type regenerateRequest struct {
	FileURL      string `json:"fileUrl"`
	UserQuery    string `json:"userQuery"`
	ErrorMessage string `json:"errorMessage"`
	RetryCount   int    `json:"retryCount"`
}

type regenerateResponse struct {
	Code      string `json:"code"`
	Exhausted bool   `json:"exhausted,omitempty"`
	Message   string `json:"message,omitempty"`
}

// handleRegenerate is the stateless runtime-error endpoint. The host owns
// the retry count; RuntimeMax bounds it.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if m := missing("fileUrl", req.FileURL, "userQuery", req.UserQuery, "errorMessage", req.ErrorMessage); len(m) > 0 {
		writeMissing(w, m)
		return
	}
	if req.RetryCount < 0 {
		writeError(w, http.StatusBadRequest, "retryCount must not be negative")
		return
	}
	if req.RetryCount >= s.cfg.RuntimeMax {
		log.Info("regenerate: runtime budget exhausted (%d/%d)", req.RetryCount, s.cfg.RuntimeMax)
		writeJSON(w, http.StatusOK, regenerateResponse{
			Code:      generate.RuntimeExhaustedComponent(req.RetryCount, req.ErrorMessage),
			Exhausted: true,
			Message:   feedback.ExhaustedMessage,
		})
		return
	}

	cause := failure.Runtime("%s", req.ErrorMessage).Context()
	gr := generate.NewRequest(req.FileURL, req.UserQuery)
	gr.PreviousError = &cause
	gr.Attempt = req.RetryCount + 1
	res, err := s.cfg.Generator.Generate(r.Context(), gr)
	if err != nil {
		writeFatal(w, err, res.Code)
		return
	}
	writeJSON(w, http.StatusOK, regenerateResponse{Code: res.Code})
}

// uploadMarker is how the chat transcript records an uploaded dataset.
var uploadMarker = regexp.MustCompile(`User uploaded a file: (\S+)`)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Code    string        `json:"code,omitempty"`
	Intent  intent.Intent `json:"intent,omitempty"`
	Valid   bool          `json:"valid,omitempty"`
}

// handleChat answers the last message of a transcript. The dataset is the
// most recently uploaded file.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "No messages provided")
		return
	}
	last := req.Messages[len(req.Messages)-1].Content
	if strings.TrimSpace(last) == "" {
		writeError(w, http.StatusBadRequest, "Invalid message content")
		return
	}
	if m := uploadMarker.FindStringSubmatch(last); m != nil {
		writeJSON(w, http.StatusOK, chatResponse{
			Role:    "assistant",
			Content: "File received at " + m[1] + ". Ask a question about it!",
		})
		return
	}

	var fileURL string
	for i := len(req.Messages) - 1; i >= 0 && fileURL == ""; i-- {
		if m := uploadMarker.FindStringSubmatch(req.Messages[i].Content); m != nil {
			fileURL = m[1]
		}
	}
	if fileURL == "" {
		writeJSON(w, http.StatusOK, chatResponse{
			Role:    "assistant",
			Content: "Please upload a file first or ask a specific question about the data.",
		})
		return
	}

	res, err := s.cfg.Generator.Generate(r.Context(), generate.NewRequest(fileURL, last))
	if err != nil {
		writeFatal(w, err, res.Code)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Role:    "assistant",
		Content: res.Code,
		Code:    res.Code,
		Intent:  res.Intent,
		Valid:   res.Valid,
	})
}

var uploadTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
}

// handleUpload stores a CSV file and returns the URL it is served from.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+maxJSONBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ctype, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if !uploadTypes[ctype] && !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, "File too large")
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		log.Error("upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}
	name := uuid.NewString() + ".csv"
	out, err := os.Create(filepath.Join(s.cfg.UploadDir, name))
	if err != nil {
		log.Error("upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		log.Error("upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}
	if err := out.Close(); err != nil {
		log.Error("upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}
	log.Info("upload: stored %s as %s (%d bytes)", header.Filename, name, header.Size)
	writeJSON(w, http.StatusOK, map[string]string{"url": baseURL(r) + "/files/" + name})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.Contains(name, "..") || name != filepath.Base(name) || !strings.HasSuffix(name, ".csv") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeFile(w, r, filepath.Join(s.cfg.UploadDir, name))
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.create()
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sess.id})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.sessions.get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown session")
	}
	return sess, ok
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.loop.State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(chi.URLParam(r, "sessionID")) {
		writeError(w, http.StatusNotFound, "Unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTurn starts a new turn. Both budgets start over and any
// regeneration of the previous turn is abandoned.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if m := missing("fileUrl", req.FileURL, "userQuery", req.UserQuery); len(m) > 0 {
		writeMissing(w, m)
		return
	}
	writeLoopResponse(w, sess.loop.Start(r.Context(), req.FileURL, req.UserQuery))
}

type runtimeErrorRequest struct {
	TurnID       string `json:"turnId"`
	ErrorMessage string `json:"errorMessage"`
}

func (s *Server) handleRuntimeError(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req runtimeErrorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if m := missing("errorMessage", req.ErrorMessage); len(m) > 0 {
		writeMissing(w, m)
		return
	}
	writeLoopResponse(w, sess.loop.ReportRuntimeError(r.Context(), req.TurnID, req.ErrorMessage))
}

func writeLoopResponse(w http.ResponseWriter, resp feedback.Response) {
	status := http.StatusOK
	if resp.Outcome == feedback.OutcomeFailed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}
