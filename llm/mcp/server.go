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

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/llm/log"
	"github.com/cloudwego/vizcoder/llm/prompt"
)

const PromptVisualizeDataset = "visualize_dataset"

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	Verbose       bool
	Backend       Backend
	// Prompts renders the visualize_dataset prompt. Nil disables it.
	Prompts *prompt.Library
}

// Server exposes the generation backend over the Model Context Protocol.
type Server struct {
	Server *server.MCPServer
	opts   ServerOptions
}

func NewServer(opts ServerOptions) *Server {
	svr := server.NewMCPServer(opts.ServerName, opts.ServerVersion,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(opts.Prompts != nil),
		server.WithRecovery(),
	)
	for _, t := range getTools(opts.Backend) {
		if opts.Verbose {
			log.Debug("mcp: register tool %s", t.Tool.Name)
		}
		svr.AddTool(t.Tool, t.Handler)
	}

	s := &Server{Server: svr, opts: opts}
	if opts.Prompts != nil {
		svr.AddPrompt(mcp.NewPrompt(PromptVisualizeDataset,
			mcp.WithPromptDescription("The full generation instruction for a dataset and a request, including the dataset schema and intent guidance."),
			mcp.WithArgument("file_url", mcp.ArgumentDescription("HTTP(S) or file URL of the CSV dataset"), mcp.RequiredArgument()),
			mcp.WithArgument("user_query", mcp.ArgumentDescription("what the visualization should show"), mcp.RequiredArgument()),
		), s.handleVisualizePrompt)
	}
	return s
}

// ServeStdio serves on stdin and stdout until the input is closed.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.Server)
}

func (s *Server) handleVisualizePrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	url := strings.TrimSpace(request.Params.Arguments["file_url"])
	query := strings.TrimSpace(request.Params.Arguments["user_query"])
	if url == "" || query == "" {
		return nil, fmt.Errorf("file_url and user_query are required")
	}
	_, summary, err := s.opts.Backend.Describe(ctx, url)
	if err != nil {
		return nil, err
	}
	text, err := generate.NewPromptBuilder(s.opts.Prompts).Build(generate.Input{
		Summary:   summary,
		Intent:    s.opts.Backend.Classify(query),
		UserQuery: query,
	})
	if err != nil {
		return nil, err
	}
	return mcp.NewGetPromptResult(
		"Generate a React visualization component",
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
	), nil
}
