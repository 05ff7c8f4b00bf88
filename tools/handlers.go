package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/olgasafonova/mediawiki-session/metrics"
	"github.com/olgasafonova/mediawiki-session/tracing"
	"github.com/olgasafonova/mediawiki-session/wiki"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
//
// A session is single-writer: the registry holds mu for the whole of
// each tool call, so concurrent MCP requests are applied one at a time.
type HandlerRegistry struct {
	session *wiki.Session
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(session *wiki.Session, logger *slog.Logger) *HandlerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandlerRegistry{
		session: session,
		logger:  logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "GetPage":
		register(h, server, tool, spec, h.GetPage)
	case "EditPage":
		register(h, server, tool, spec, h.EditPage)
	case "GetRecentChanges":
		register(h, server, tool, spec, h.GetRecentChanges)
	case "GetRandomPages":
		register(h, server, tool, spec, h.GetRandomPages)
	case "FetchEditToken":
		register(h, server, tool, spec, h.FetchEditToken)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
// It wraps the handler with panic recovery, metrics, tracing, and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (_ *mcp.CallToolResult, result Result, err error) {
		defer h.recoverPanic(spec.Name, &err)

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		result, err = method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			tracing.RecordError(span, err)
			metrics.RecordRequest(spec.Name, duration, false)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return nil, result, nil
	})
}

// recoverPanic recovers from panics in tool handlers and turns them into
// a tool error when errp is non-nil.
func (h *HandlerRegistry) recoverPanic(toolName string, errp *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if errp != nil {
			*errp = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "session_id", h.session.ID()}

	switch a := args.(type) {
	case GetPageArgs:
		attrs = append(attrs, "title", a.Title)
	case EditPageArgs:
		attrs = append(attrs, "title", a.Title, "force", a.Force)
	case GetRecentChangesArgs:
		attrs = append(attrs, "continue", a.Continue)
	case GetRandomPagesArgs:
		attrs = append(attrs, "limit", a.Limit)
	case FetchEditTokenArgs:
		attrs = append(attrs, "title", a.Title)
	}

	switch r := result.(type) {
	case GetPageResult:
		attrs = append(attrs, "found", r.Found, "content_length", len(r.Content))
	case EditPageResult:
		attrs = append(attrs, "skipped", r.Skipped, "result", r.Result)
	case GetRecentChangesResult:
		attrs = append(attrs, "changes", r.Count, "finished", r.Finished)
	case GetRandomPagesResult:
		attrs = append(attrs, "titles", r.Count)
	case FetchEditTokenResult:
		attrs = append(attrs, "obtained", r.Obtained)
	}

	h.logger.Info("Tool executed", attrs...)
}
