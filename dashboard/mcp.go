package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/devlens/annotation"
	"github.com/hazyhaar/devlens/kit"
)

// RegisterMCP registers the annotation tools on an MCP server, so coding
// agents can read and act on page feedback directly.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerListTool(srv)
	s.registerAnnotateTool(srv)
	s.registerUpdateStatusTool(srv)
	s.registerDeleteTool(srv)
	s.registerSearchTool(srv)
	s.registerExportTool(srv)
	s.registerStatsTool(srv)
	s.registerDescribeTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- list ---

type listRequest struct {
	Status string `json:"status,omitempty"`
}

func (s *Server) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_list_annotations",
		Description: "List page annotations, newest first, optionally filtered by status.",
		InputSchema: inputSchema(map[string]any{
			"status": map[string]any{"type": "string", "enum": []any{"all", "pending", "in-progress", "resolved", "dismissed"}, "description": "Status filter (default: all)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRequest)
		filter, err := annotation.ParseFilter(r.Status)
		if err != nil {
			return nil, err
		}
		list := annotation.Filtered(s.store.Read(), filter)
		return map[string]any{"annotations": list, "count": len(list)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[listRequest])
}

// --- annotate ---

type annotateRequest struct {
	Selector string `json:"selector"`
	Comment  string `json:"comment"`
	Prompt   string `json:"prompt,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

func (s *Server) registerAnnotateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_annotate",
		Description: "Attach a feedback note to a page element identified by CSS selector.",
		InputSchema: inputSchema(map[string]any{
			"selector": map[string]any{"type": "string", "description": "CSS selector of the target element"},
			"comment":  map[string]any{"type": "string", "description": "Feedback text"},
			"prompt":   map[string]any{"type": "string", "description": "Optional instruction for a coding agent"},
			"snippet":  map[string]any{"type": "string", "description": "Optional HTML context around the element"},
		}, []string{"selector", "comment"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*annotateRequest)
		if r.Selector == "" {
			return nil, errors.New("selector is required")
		}
		return s.store.Save(ctx, annotation.Annotation{
			Selector: r.Selector,
			Comment:  r.Comment,
			Prompt:   r.Prompt,
			Snippet:  r.Snippet,
		})
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[annotateRequest])
}

// --- update_status ---

type updateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) registerUpdateStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_update_status",
		Description: "Set the workflow status of an annotation.",
		InputSchema: inputSchema(map[string]any{
			"id":     map[string]any{"type": "string", "description": "Annotation ID"},
			"status": map[string]any{"type": "string", "enum": []any{"pending", "in-progress", "resolved", "dismissed"}, "description": "New status"},
		}, []string{"id", "status"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*updateStatusRequest)
		status, err := annotation.ParseStatus(r.Status)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateStatus(ctx, r.ID, status); err != nil {
			return nil, err
		}
		a, ok := s.store.Get(r.ID)
		if !ok {
			return map[string]any{"updated": false, "id": r.ID}, nil
		}
		return a, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[updateStatusRequest])
}

// --- delete ---

type deleteRequest struct {
	ID string `json:"id"`
}

func (s *Server) registerDeleteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_delete_annotation",
		Description: "Delete an annotation by ID. Deleting an unknown ID is not an error.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Annotation ID"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*deleteRequest)
		if err := s.store.Delete(ctx, r.ID); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": r.ID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[deleteRequest])
}

// --- search ---

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_search_annotations",
		Description: "Full-text search across annotation comments, prompts, and selectors.",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
			"limit": map[string]any{"type": "integer", "description": "Max results (default 20)"},
		}, []string{"query"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*searchRequest)
		if r.Query == "" {
			return nil, errors.New("query is required")
		}
		ids, err := s.index.Search(r.Query, r.Limit)
		if err != nil {
			return nil, err
		}
		list := make([]annotation.Annotation, 0, len(ids))
		for _, id := range ids {
			if a, ok := s.store.Get(id); ok {
				list = append(list, a)
			}
		}
		return map[string]any{"annotations": list, "count": len(list)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[searchRequest])
}

// --- export ---

type exportRequest struct {
	Format string `json:"format,omitempty"`
	Status string `json:"status,omitempty"`
}

func (s *Server) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_export",
		Description: "Export annotations as JSON or markdown, optionally filtered by status.",
		InputSchema: inputSchema(map[string]any{
			"format": map[string]any{"type": "string", "enum": []any{"json", "markdown"}, "description": "Output format (default: markdown)"},
			"status": map[string]any{"type": "string", "enum": []any{"all", "pending", "in-progress", "resolved", "dismissed"}, "description": "Status filter (default: all)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*exportRequest)
		filter, err := annotation.ParseFilter(r.Status)
		if err != nil {
			return nil, err
		}
		list := annotation.Filtered(s.store.Read(), filter)
		switch r.Format {
		case "json":
			out, err := annotation.ExportJSON(list)
			if err != nil {
				return nil, err
			}
			return map[string]any{"format": "json", "content": out}, nil
		case "", "markdown", "md":
			return map[string]any{"format": "markdown", "content": annotation.ExportMarkdown(list)}, nil
		default:
			return nil, fmt.Errorf("unknown export format %q", r.Format)
		}
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[exportRequest])
}

// --- stats ---

type statsRequest struct{}

func (s *Server) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_stats",
		Description: "Annotation counts per status plus live page performance when an overlay session is attached.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		resp := map[string]any{
			"total":  s.store.Count(),
			"counts": annotation.Counts(s.store.Read()),
		}
		if s.stats != nil {
			snap := s.stats()
			resp["perf"] = snap.Perf
			if snap.Process != nil {
				resp["process"] = snap.Process
			}
		}
		return resp, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[statsRequest])
}

// --- describe ---

type describeRequest struct {
	Selector string `json:"selector"`
}

func (s *Server) registerDescribeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "devlens_describe",
		Description: "Describe the first element matching a CSS selector on the attached page: tag, id, classes, geometry, ancestry, text.",
		InputSchema: inputSchema(map[string]any{
			"selector": map[string]any{"type": "string", "description": "CSS selector to locate the element"},
		}, []string{"selector"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*describeRequest)
		if r.Selector == "" {
			return nil, errors.New("selector is required")
		}
		return s.describe(ctx, r.Selector)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[describeRequest])
}

// decodeInto unmarshals MCP arguments into a typed request.
func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}
