package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/pkg/logging"
)

var (
	// ErrClientClosed is returned when the MCP client has been closed.
	ErrClientClosed = errors.New("mcp client closed")
)

// Option configures optional MCP client behaviour.
type Option func(*clientConfig)

type clientConfig struct {
	implementation sdkmcp.Implementation
	logger         *slog.Logger
	args           []string
	env            []string
	keepAlive      time.Duration
	httpClient     *http.Client
}

// WithLogger configures logging for the MCP client.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithCommandArgs configures additional arguments when launching an stdio MCP server.
func WithCommandArgs(args ...string) Option {
	return func(cfg *clientConfig) {
		cfg.args = append(cfg.args, args...)
	}
}

// WithCommandEnv appends environment variables when launching an stdio MCP server.
func WithCommandEnv(env ...string) Option {
	return func(cfg *clientConfig) {
		cfg.env = append(cfg.env, env...)
	}
}

// WithKeepAlive configures periodic ping requests to keep the session healthy.
func WithKeepAlive(interval time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.keepAlive = interval
	}
}

// WithHTTPClient supplies a custom HTTP client for the streamable transport.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// Client calls the tandem tools of a remote MCP server.
type Client struct {
	sdkClient *sdkmcp.Client
	session   *sdkmcp.ClientSession
	logger    *slog.Logger

	mu        sync.Mutex
	listeners map[string]provider.FragmentFunc

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// NewStdioClient launches command as an MCP server over stdio.
func NewStdioClient(ctx context.Context, command string, opts ...Option) (*Client, error) {
	if command == "" {
		return nil, errors.New("mcp: command cannot be empty")
	}
	cfg := defaultConfig(opts)

	cmd := exec.Command(command, cfg.args...)
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}
	cmd.Stderr = os.Stderr

	return connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, cfg)
}

// NewStreamableClient connects to an MCP server over streamable HTTP.
func NewStreamableClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp: endpoint cannot be empty")
	}
	cfg := defaultConfig(opts)

	transport := &sdkmcp.StreamableClientTransport{Endpoint: endpoint}
	if cfg.httpClient != nil {
		transport.HTTPClient = cfg.httpClient
	}
	return connect(ctx, transport, cfg)
}

func defaultConfig(opts []Option) clientConfig {
	cfg := clientConfig{
		implementation: sdkmcp.Implementation{
			Name:    "tandem-client",
			Version: "0.1.0",
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.WithComponent("mcp-client")
	}
	return cfg
}

func connect(ctx context.Context, transport sdkmcp.Transport, cfg clientConfig) (*Client, error) {
	client := &Client{
		logger:    cfg.logger,
		listeners: make(map[string]provider.FragmentFunc),
		closed:    make(chan struct{}),
	}

	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, &sdkmcp.ClientOptions{
		ProgressNotificationHandler: client.onProgress,
		KeepAlive:                   cfg.keepAlive,
	})

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session
	return client, nil
}

func (c *Client) onProgress(_ context.Context, req *sdkmcp.ProgressNotificationClientRequest) {
	if req == nil || req.Params == nil {
		return
	}
	token, ok := req.Params.ProgressToken.(string)
	if !ok {
		return
	}
	c.mu.Lock()
	fn := c.listeners[token]
	c.mu.Unlock()
	if fn != nil {
		fn(req.Params.Message)
	}
}

// Generate calls tutor_generate. Fragments arrive through onFragment when
// the server reports progress.
func (c *Client) Generate(ctx context.Context, args GenerateArgs, onFragment provider.FragmentFunc) (string, error) {
	params := &sdkmcp.CallToolParams{Name: ToolGenerate, Arguments: args}
	if onFragment != nil {
		token := uuid.NewString()
		params.SetProgressToken(token)
		c.mu.Lock()
		c.listeners[token] = onFragment
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			delete(c.listeners, token)
			c.mu.Unlock()
		}()
	}
	return c.call(ctx, params)
}

// Brainstorm calls scenario_brainstorm.
func (c *Client) Brainstorm(ctx context.Context, args BrainstormArgs) (string, error) {
	return c.call(ctx, &sdkmcp.CallToolParams{Name: ToolBrainstorm, Arguments: args})
}

func (c *Client) call(ctx context.Context, params *sdkmcp.CallToolParams) (string, error) {
	select {
	case <-c.closed:
		return "", ErrClientClosed
	default:
	}

	res, err := c.session.CallTool(ctx, params)
	if err != nil {
		return "", fmt.Errorf("mcp: call %s: %w", params.Name, err)
	}
	text := contentText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("mcp: %s failed: %s", params.Name, text)
	}
	return text, nil
}

func contentText(content []sdkmcp.Content) string {
	var parts []string
	for _, item := range content {
		if t, ok := item.(*sdkmcp.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close terminates the session.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
	})
	return c.closeErr
}
