package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"ragchat/models"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

// RemoteRegistry forwards listing and calls to an MCP tool server. The
// session is opened on first use and reused until a request on it fails.
type RemoteRegistry struct {
	client *mcp.Client
	target string

	mu      sync.Mutex
	session *mcp.ClientSession
	names   []string
}

// NewRemoteRegistry accepts "stdio://<command args>", "sse://<host>" or an
// http(s) URL of a streamable MCP endpoint. A bare command runs over stdio.
func NewRemoteRegistry(target string) *RemoteRegistry {
	client := mcp.NewClient(&mcp.Implementation{Name: "ragchat", Version: ServerVersion}, nil)
	return &RemoteRegistry{client: client, target: target}
}

func (r *RemoteRegistry) connect(ctx context.Context) (*mcp.ClientSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return r.session, nil
	}

	transport, err := transportBuilder(r.target)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	session, err := r.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to tool server %q: %w", r.target, err)
	}

	log.Info().Str("server", r.target).Msg("Connected to tool server")
	r.session = session
	return session, nil
}

func (r *RemoteRegistry) Contracts(ctx context.Context) ([]models.ToolContract, error) {
	session, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	var contracts []models.ToolContract
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			r.drop(session, err)
			return nil, fmt.Errorf("list tools: %w", err)
		}
		schema, err := schemaMap(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		contracts = append(contracts, models.ToolContract{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].Name < contracts[j].Name })

	r.mu.Lock()
	r.names = lo.Map(contracts, func(c models.ToolContract, _ int) string { return c.Name })
	r.mu.Unlock()

	return contracts, nil
}

func (r *RemoteRegistry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	names, err := r.knownNames(ctx)
	if err != nil {
		return "", err
	}
	if !lo.Contains(names, name) {
		return "", notFound(name, names)
	}

	session, err := r.connect(ctx)
	if err != nil {
		return "", err
	}

	if args == nil {
		args = map[string]any{}
	}
	log.Info().Str("tool", name).Interface("args", args).Msg("Executing remote tool")
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		r.drop(session, err)
		return "", fmt.Errorf("%w: %s: %w", ErrToolFailed, name, err)
	}

	text := contentText(result.Content)
	if result.IsError {
		return "", fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text)
	}
	return text, nil
}

// Prompts lists the prompt templates the server advertises.
func (r *RemoteRegistry) Prompts(ctx context.Context) ([]models.PromptInfo, error) {
	session, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	var infos []models.PromptInfo
	for prompt, err := range session.Prompts(ctx, nil) {
		if err != nil {
			r.drop(session, err)
			return nil, fmt.Errorf("list prompts: %w", err)
		}
		infos = append(infos, models.PromptInfo{
			Name:        prompt.Name,
			Description: prompt.Description,
			Arguments: lo.Map(prompt.Arguments, func(a *mcp.PromptArgument, _ int) models.PromptArgument {
				return models.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required}
			}),
		})
	}
	return infos, nil
}

func (r *RemoteRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	return err
}

// drop forgets a session after a failed request so the next call reconnects
// and lists the tools again.
func (r *RemoteRegistry) drop(session *mcp.ClientSession, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != session {
		return
	}
	_ = session.Close()
	r.session = nil
	r.names = nil
	log.Warn().Err(cause).Str("server", r.target).Msg("Dropped tool server session")
}

func (r *RemoteRegistry) knownNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	names := r.names
	r.mu.Unlock()
	if names != nil {
		return names, nil
	}

	if _, err := r.Contracts(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names, nil
}

func schemaMap(schema any) (map[string]any, error) {
	if m, ok := schema.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("input schema is not an object: %w", err)
	}
	return m, nil
}

func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

const (
	stdioScheme = "stdio://"
	sseScheme   = "sse://"
)

func buildTransport(target string) (mcp.Transport, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("tool server address is empty")
	}

	lowered := strings.ToLower(target)
	switch {
	case strings.HasPrefix(lowered, stdioScheme):
		return stdioTransport(target[len(stdioScheme):])
	case strings.HasPrefix(lowered, sseScheme):
		endpoint, err := httpEndpoint("http://" + target[len(sseScheme):])
		if err != nil {
			return nil, err
		}
		return &mcp.SSEClientTransport{Endpoint: endpoint}, nil
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		endpoint, err := httpEndpoint(target)
		if err != nil {
			return nil, err
		}
		return &mcp.StreamableClientTransport{Endpoint: endpoint}, nil
	}
	return stdioTransport(target)
}

// The server process outlives the request that first opened the session.
func stdioTransport(command string) (mcp.Transport, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("stdio command is empty")
	}
	return &mcp.CommandTransport{Command: exec.Command(parts[0], parts[1:]...)}, nil
}

func httpEndpoint(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", raw)
	}
	return parsed.String(), nil
}
