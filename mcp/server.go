// Package mcp exposes the tutor as Model Context Protocol tools and
// provides a client for calling them.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/message"
	"github.com/sweetpotato0/tandem/pkg/logging"
	"github.com/sweetpotato0/tandem/scenario"
	"github.com/sweetpotato0/tandem/tutor"
)

// Tool names.
const (
	ToolGenerate   = "tutor_generate"
	ToolBrainstorm = "scenario_brainstorm"
)

// DefaultUserID identifies MCP callers that do not pass a user_id.
const DefaultUserID = "mcp"

// Generator runs one tutor request.
type Generator interface {
	Generate(ctx context.Context, req *tutor.Request, onFragment provider.FragmentFunc) (string, error)
}

// GenerateArgs are the arguments of the tutor_generate tool.
type GenerateArgs struct {
	Action         string         `json:"action" jsonschema:"One of content, regenerate, correction, explanation, examples"`
	Message        string         `json:"message,omitempty" jsonschema:"The message to reply to or annotate"`
	TargetLanguage string         `json:"target_language" jsonschema:"Language being learned, e.g. Chinois or Japanese"`
	SourceLanguage string         `json:"source_language" jsonschema:"The learner's own language"`
	History        []message.Turn `json:"history,omitempty" jsonschema:"Earlier turns, oldest first"`
	Topic          string         `json:"topic,omitempty" jsonschema:"Role-play scenario"`
	Model          string         `json:"model,omitempty" jsonschema:"Model identifier; gpt* and claude* select those backends"`
	UserID         string         `json:"user_id,omitempty" jsonschema:"Identity used to look up API keys"`
}

// BrainstormArgs are the arguments of the scenario_brainstorm tool.
type BrainstormArgs struct {
	Kind           string `json:"kind" jsonschema:"One of random, improve, title"`
	Topic          string `json:"topic,omitempty" jsonschema:"Scenario to improve or title"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	Model          string `json:"model,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// Server is the tandem MCP server.
type Server struct {
	tutor     Generator
	scenarios *scenario.Service
	logger    *slog.Logger
	server    *sdkmcp.Server
}

// NewServer registers the tandem tools. scenarios may be nil, in which case
// only tutor_generate is offered.
func NewServer(gen Generator, scenarios *scenario.Service, version string) *Server {
	s := &Server{
		tutor:     gen,
		scenarios: scenarios,
		logger:    logging.WithComponent("mcp"),
	}
	s.server = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tandem",
		Title:   "tandem language tutor",
		Version: version,
	}, nil)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolGenerate,
		Description: "Generate a role-play reply, correction, explanation or example replies for a language learner",
	}, s.generate)

	if scenarios != nil {
		sdkmcp.AddTool(s.server, &sdkmcp.Tool{
			Name:        ToolBrainstorm,
			Description: "Invent, improve or title a role-play scenario",
		}, s.brainstorm)
	}
	return s
}

// SDKServer returns the underlying MCP server.
func (s *Server) SDKServer() *sdkmcp.Server {
	return s.server
}

// RunStdio serves over stdin and stdout until ctx ends or the client leaves.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.server
	}, nil)
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: text},
		},
	}
}

// generate streams fragments back as progress notifications when the
// caller asked for progress.
func (s *Server) generate(ctx context.Context, req *sdkmcp.CallToolRequest, a GenerateArgs) (*sdkmcp.CallToolResult, any, error) {
	userID := a.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	var onFragment provider.FragmentFunc
	if req != nil && req.Params != nil && req.Session != nil {
		if token := req.Params.GetProgressToken(); token != nil {
			var n float64
			onFragment = func(text string) {
				n++
				err := req.Session.NotifyProgress(ctx, &sdkmcp.ProgressNotificationParams{
					ProgressToken: token,
					Message:       text,
					Progress:      n,
				})
				if err != nil {
					s.logger.DebugContext(ctx, "progress notification failed", "error", err)
				}
			}
		}
	}

	text, err := s.tutor.Generate(ctx, &tutor.Request{
		Action:         tutor.Action(a.Action),
		TargetMessage:  a.Message,
		TargetLanguage: a.TargetLanguage,
		SourceLanguage: a.SourceLanguage,
		History:        a.History,
		Topic:          a.Topic,
		Model:          a.Model,
		UserID:         userID,
	}, onFragment)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ToolGenerate, err)
	}
	return textResult(text), nil, nil
}

func (s *Server) brainstorm(ctx context.Context, _ *sdkmcp.CallToolRequest, a BrainstormArgs) (*sdkmcp.CallToolResult, any, error) {
	userID := a.UserID
	if userID == "" {
		userID = DefaultUserID
	}
	text, err := s.scenarios.Brainstorm(ctx, a.Kind, a.Topic, scenario.Options{
		UserID:         userID,
		Model:          a.Model,
		SourceLanguage: a.SourceLanguage,
		TargetLanguage: a.TargetLanguage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ToolBrainstorm, err)
	}
	return textResult(text), nil, nil
}
