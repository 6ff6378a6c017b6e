package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golovatskygroup/mcp-devspace/internal/journal"
	"github.com/golovatskygroup/mcp-devspace/pkg/mcp"
)

// JournalURI lists recent executions. An optional ?limit=N caps the count.
const JournalURI = "devspace://journal/recent"

const defaultJournalLimit = 50

// JournalReader is the read side of the execution journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

func (s *Server) handleListResources(req *mcp.Request) *mcp.Response {
	res := []mcp.Resource{}
	if s.opts.Journal != nil {
		res = append(res, mcp.Resource{
			URI:         JournalURI,
			Name:        "Recent devspace executions",
			Description: "The most recent tool calls with outcome, exit code and duration",
			MimeType:    "application/json",
		})
	}
	return respond(req, mcp.ListResourcesResult{Resources: res})
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.ReadResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}

	limit, ok := parseJournalURI(params.URI)
	if !ok {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, fmt.Sprintf("Unsupported resource URI: %s", params.URI))
	}
	if s.opts.Journal == nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "No journal configured")
	}

	entries, err := s.opts.Journal.Recent(ctx, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read journal")
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}

	return respond(req, mcp.ReadResourceResult{Contents: []mcp.ContentBlock{{
		Type:     "text",
		Text:     string(data),
		URI:      params.URI,
		MimeType: "application/json",
	}}})
}

func parseJournalURI(raw string) (int, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "devspace" || u.Host != "journal" || u.Path != "/recent" {
		return 0, false
	}
	limit := defaultJournalLimit
	if v := u.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, false
		}
		limit = n
	}
	return limit, true
}
