package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golovatskygroup/mcp-devspace/internal/metrics"
	"github.com/golovatskygroup/mcp-devspace/internal/tools"
	"github.com/golovatskygroup/mcp-devspace/pkg/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	// MaxConcurrent bounds in-flight tools/call requests. Values < 1 mean 1.
	MaxConcurrent int
	// RateLimitPerMinute caps accepted tools/call requests. 0 disables it.
	RateLimitPerMinute int
	// Journal backs the journal resource. Nil hides it.
	Journal JournalReader
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Server is the MCP dispatch loop over a line-delimited stream.
type Server struct {
	transport *mcp.Transport
	handler   *tools.Handler
	opts      Options
	log       zerolog.Logger
	sem       *semaphore.Weighted
	limiter   *rate.Limiter

	mu       sync.Mutex
	inflight map[string]*pending
	wg       sync.WaitGroup
}

// New creates a server reading requests from in and writing responses to out.
func New(handler *tools.Handler, in io.Reader, out io.Writer, opts Options) *Server {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Name == "" {
		opts.Name = "devspace-mcp-server"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	s := &Server{
		transport: mcp.NewTransport(in, out),
		handler:   handler,
		opts:      opts,
		log:       opts.Logger,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		inflight:  make(map[string]*pending),
	}
	if n := opts.RateLimitPerMinute; n > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	return s
}

// pending is an in-flight tools/call. Pointer identity tells a call
// apart from a later one that reused its id.
type pending struct {
	cancel context.CancelFunc
}

type incoming struct {
	req *mcp.Request
	err error
}

// Run serves until the input ends or ctx is done. In-flight calls are
// waited for in both cases; ctx cancellation also cancels them.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().
		Int("tools", s.handler.Registry().Count()).
		Int("max_concurrent", s.opts.MaxConcurrent).
		Int("rate_limit_per_minute", s.opts.RateLimitPerMinute).
		Msg("Server started")

	msgs := make(chan incoming)
	go func() {
		defer close(msgs)
		for {
			req, err := s.transport.ReadMessage()
			select {
			case msgs <- incoming{req: req, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, mcp.ErrMalformed) {
				return
			}
		}
	}()

	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Shutting down")
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if m.err != nil {
				if errors.Is(m.err, io.EOF) {
					s.log.Info().Msg("Input closed")
					return nil
				}
				if errors.Is(m.err, mcp.ErrMalformed) {
					s.log.Warn().Err(m.err).Msg("Error reading message")
					s.write(mcp.NewErrorResponse(nil, mcp.ParseError, "Parse error: "+m.err.Error()))
					continue
				}
				return fmt.Errorf("read message: %w", m.err)
			}
			if resp := s.handleRequest(ctx, m.req); resp != nil {
				s.write(resp)
			}
		}
	}
}

func (s *Server) write(resp *mcp.Response) {
	if err := s.transport.WriteResponse(resp); err != nil {
		s.log.Error().Err(err).Msg("Error writing response")
	}
}

func (s *Server) handleRequest(ctx context.Context, req *mcp.Request) *mcp.Response {
	s.log.Debug().Str("method", req.Method).Interface("id", req.ID).Msg("Request received")

	switch req.Method {
	case "":
		if req.IsNotification() {
			return nil
		}
		return mcp.NewErrorResponse(req.ID, mcp.InvalidRequest, "Invalid request: missing method")
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "notifications/cancelled":
		s.handleCancelled(req)
		return nil
	case "ping":
		return s.handlePing(req)
	case "tools/list":
		return s.handleListTools(req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "resources/list":
		return s.handleListResources(req)
	case "resources/read":
		return s.handleReadResource(ctx, req)
	default:
		if req.IsNotification() {
			return nil
		}
		return mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *mcp.Request) *mcp.Response {
	caps := mcp.ServerCapabilities{Tools: &mcp.ToolsCapability{}}
	if s.opts.Journal != nil {
		caps.Resources = &mcp.ResourcesCapability{}
	}
	result := mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities:    caps,
		ServerInfo: mcp.ServerInfo{
			Name:    s.opts.Name,
			Version: s.opts.Version,
		},
		Instructions: s.buildInstructions(),
	}
	return respond(req, result)
}

func (s *Server) handlePing(req *mcp.Request) *mcp.Response {
	return respond(req, map[string]any{})
}

func (s *Server) handleListTools(req *mcp.Request) *mcp.Response {
	return respond(req, mcp.ListToolsResult{Tools: s.handler.Tools()})
}

func (s *Server) handleCallTool(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}
	if strings.TrimSpace(params.Name) == "" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: missing tool name")
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.log.Warn().Str("tool", params.Name).Msg("Rate limit exceeded")
		s.opts.Metrics.RecordCall(params.Name, metrics.OutcomeRateLimited)
		return respond(req, mcp.ErrorResult(fmt.Sprintf(
			"❌ Error in %s: rate limit of %d calls per minute exceeded, retry shortly",
			params.Name, s.opts.RateLimitPerMinute)))
	}

	callCtx, cancel := context.WithCancel(ctx)
	key := idKey(req.ID)
	self := &pending{cancel: cancel}
	if !req.IsNotification() {
		s.mu.Lock()
		s.inflight[key] = self
		s.mu.Unlock()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			if s.inflight[key] == self {
				delete(s.inflight, key)
			}
			s.mu.Unlock()
			cancel()
		}()

		if err := s.sem.Acquire(callCtx, 1); err != nil {
			s.log.Info().Str("tool", params.Name).Msg("Call cancelled while queued")
			return
		}
		defer s.sem.Release(1)

		result, err := s.handler.Handle(callCtx, params.Name, params.Arguments)
		if err != nil || req.IsNotification() {
			return
		}
		s.write(respond(req, result))
	}()
	return nil
}

func (s *Server) handleCancelled(req *mcp.Request) {
	var params mcp.CancelledParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.log.Warn().Err(err).Msg("Invalid cancellation")
		return
	}
	key := idKey(params.RequestID)

	s.mu.Lock()
	p, ok := s.inflight[key]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.log.Info().Interface("id", params.RequestID).Str("reason", params.Reason).Msg("Cancelling request")
	p.cancel()
}

func (s *Server) buildInstructions() string {
	reg := s.handler.Registry()

	var sb strings.Builder
	sb.WriteString("DevSpace MCP Server: run devspace CLI commands as tools.\n\n")
	sb.WriteString("Every tool accepts an optional workingDirectory. Before each call the server checks that ")
	sb.WriteString("the devspace CLI is installed and that the working directory is usable.\n\n")
	for _, cat := range reg.Categories() {
		sb.WriteString(fmt.Sprintf("%s (%s):\n", cat.Name, cat.Description))
		for _, name := range cat.Tools {
			sb.WriteString("- " + name + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Total available tools: %d\n", reg.Count()))
	return sb.String()
}

func respond(req *mcp.Request, result any) *mcp.Response {
	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

// idKey normalizes a JSON-RPC id so 7 and "7" stay distinct.
func idKey(id any) string {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Sprint(id)
	}
	return string(data)
}
