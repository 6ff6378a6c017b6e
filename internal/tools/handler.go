// Package tools runs the devspace pipeline for one tools/call: schema
// validation, the pre-flight chain, argument translation, the subprocess,
// and result formatting.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/golovatskygroup/mcp-devspace/internal/format"
	"github.com/golovatskygroup/mcp-devspace/internal/journal"
	"github.com/golovatskygroup/mcp-devspace/internal/metrics"
	"github.com/golovatskygroup/mcp-devspace/internal/process"
	"github.com/golovatskygroup/mcp-devspace/internal/registry"
	"github.com/golovatskygroup/mcp-devspace/internal/schema"
	"github.com/golovatskygroup/mcp-devspace/internal/validation"
	"github.com/golovatskygroup/mcp-devspace/pkg/mcp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder receives one entry per handled call.
type Recorder interface {
	Record(ctx context.Context, e *journal.Entry) error
}

// Options configures a Handler. Zero values are usable: the binary
// defaults to "devspace", a nil Runner uses process.NewInvoker, and nil
// Metrics or Journal disable those sinks.
type Options struct {
	Binary string
	// Timeout is passed to every devspace run. 0 disables the timer.
	Timeout time.Duration
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Journal Recorder
	Runner  validation.Runner
}

// Handler processes tools/call requests against the operation registry.
type Handler struct {
	registry *registry.Registry
	chain    *validation.Chain
	runner   validation.Runner
	binary   string
	timeout  time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics
	journal  Recorder
}

// NewHandler creates a handler for reg.
func NewHandler(reg *registry.Registry, opts Options) *Handler {
	if opts.Binary == "" {
		opts.Binary = "devspace"
	}
	if opts.Runner == nil {
		opts.Runner = process.NewInvoker()
	}
	return &Handler{
		registry: reg,
		chain:    validation.NewChain(opts.Binary, opts.Runner),
		runner:   opts.Runner,
		binary:   opts.Binary,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		journal:  opts.Journal,
	}
}

// Tools returns the discovery list.
func (h *Handler) Tools() []mcp.Tool {
	return h.registry.Tools()
}

// Registry returns the operation catalog the handler serves.
func (h *Handler) Registry() *registry.Registry {
	return h.registry
}

// call carries per-request state through the pipeline.
type call struct {
	id      string
	name    string
	raw     json.RawMessage
	started time.Time
	log     zerolog.Logger
	entry   journal.Entry
}

// Handle runs one call. Every failure is reported as an error result;
// the returned error is non-nil only when ctx was cancelled, in which case
// the caller must not reply.
func (h *Handler) Handle(ctx context.Context, name string, args json.RawMessage) (result *mcp.CallToolResult, err error) {
	c := &call{
		id:      uuid.New().String(),
		name:    name,
		raw:     args,
		started: time.Now(),
	}
	c.log = h.log.With().Str("call_id", c.id).Str("tool", name).Logger()
	c.entry = journal.Entry{ID: c.id, Operation: name, StartedAt: c.started}
	defer h.metrics.Track()()

	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Tool call panicked")
			msg := fmt.Sprintf("unexpected error: %v", r)
			result, err = mcp.ErrorResult(format.Message(name, msg, c.context(nil))), nil
			h.finish(ctx, c, metrics.OutcomePanic, msg)
		}
	}()

	c.log.Info().Bool("has_args", len(args) > 0).Msg("Tool call received")
	c.log.Debug().RawJSON("args", rawOrEmpty(args)).Msg("Tool call arguments")
	return h.run(ctx, c)
}

func (h *Handler) run(ctx context.Context, c *call) (*mcp.CallToolResult, error) {
	op, ok := h.registry.Get(c.name)
	if !ok {
		msg := "Unknown tool: " + c.name
		c.log.Error().Msg("Unknown tool requested")
		extra := map[string]any{"availableTools": h.registry.Names()}
		if s := h.registry.Suggest(c.name, 3); len(s) > 0 {
			extra["didYouMean"] = s
		}
		h.finish(ctx, c, metrics.OutcomeUnknownTool, msg)
		return mcp.ErrorResult(format.Message(c.name, msg, c.context(extra))), nil
	}
	c.entry.Subcommand = op.Subcommand

	in, err := op.Schema.Validate(c.raw)
	if err != nil {
		c.log.Warn().Err(err).Msg("Invalid arguments")
		h.finish(ctx, c, metrics.OutcomeInvalid, err.Error())
		return mcp.ErrorResult(format.Error(c.name, err, c.context(nil))), nil
	}

	workingDir := in.Str(registry.FieldWorkingDirectory)
	c.entry.WorkingDirectory = workingDir

	outcome, err := h.chain.Run(ctx, op, workingDir)
	if err != nil {
		return nil, h.cancelled(ctx, c, err)
	}
	if !outcome.Valid {
		c.log.Warn().
			Str("stage", outcome.Stage).
			Str("message", outcome.Message).
			Interface("details", outcome.Details).
			Msg("Validation failed")
		h.metrics.RecordValidationFailure(outcome.Stage)
		h.finish(ctx, c, metrics.OutcomeRejected, outcome.Message)
		return mcp.ErrorResult(format.Outcome(c.name, outcome, c.context(nil))), nil
	}

	return h.execute(ctx, c, op, in, workingDir)
}

func (h *Handler) execute(ctx context.Context, c *call, op *registry.Operation, in schema.Input, workingDir string) (*mcp.CallToolResult, error) {
	argv := op.Argv(in)
	c.entry.Args = argv
	c.log.Debug().Strs("argv", argv).Str("working_directory", workingDir).Msg("Executing devspace")

	start := time.Now()
	res, err := h.runner.Run(ctx, h.binary, argv, process.WithDir(workingDir), process.WithTimeout(h.timeout))
	h.metrics.ObserveProcess(c.name, time.Since(start))

	if err != nil {
		if errors.Is(err, process.ErrCancelled) {
			return nil, h.cancelled(ctx, c, err)
		}
		outcome := metrics.OutcomeFailed
		if process.IsTimeout(err) {
			outcome = metrics.OutcomeTimeout
		}
		c.log.Error().Err(err).Msg("Tool call failed")
		h.finish(ctx, c, outcome, err.Error())
		return mcp.ErrorResult(format.Error(c.name, err, c.context(map[string]any{
			"timeoutMs": h.timeout.Milliseconds(),
		}))), nil
	}

	c.entry.ExitCode = res.ExitCode
	text := format.CommandResult(op.Subcommand, res)
	if !res.Success() {
		h.finish(ctx, c, metrics.OutcomeFailed, res.Stderr)
		return mcp.ErrorResult(text), nil
	}
	h.finish(ctx, c, metrics.OutcomeSuccess, "")
	return mcp.TextResult(text), nil
}

func (h *Handler) cancelled(ctx context.Context, c *call, err error) error {
	c.log.Info().Err(err).Msg("Tool call cancelled")
	h.finish(ctx, c, metrics.OutcomeCancelled, err.Error())
	return err
}

// finish records the call in the log, metrics and journal.
func (h *Handler) finish(ctx context.Context, c *call, outcome, errMsg string) {
	d := time.Since(c.started)
	h.metrics.RecordCall(c.name, outcome)

	ev := c.log.Info()
	if outcome != metrics.OutcomeSuccess {
		ev = c.log.Warn().RawJSON("args", rawOrEmpty(c.raw))
	}
	ev.Str("outcome", outcome).Dur("duration", d).Msg("Tool call completed")

	if h.journal == nil {
		return
	}
	c.entry.Outcome = outcome
	c.entry.Error = errMsg
	c.entry.DurationMS = d.Milliseconds()
	if err := h.journal.Record(context.WithoutCancel(ctx), &c.entry); err != nil {
		c.log.Warn().Err(err).Msg("Failed to record journal entry")
	}
}

// context builds the formatter context: the raw arguments plus extra.
func (c *call) context(extra map[string]any) map[string]any {
	out := map[string]any{"args": decodeArgs(c.raw)}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func decodeArgs(raw json.RawMessage) any {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil || v == nil {
		return map[string]any{}
	}
	return v
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("{}")
	}
	return raw
}
