package capture

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/kit"
	"github.com/hazyhaar/pinmark/target"
)

// RegisterMCP registers the target-creation tool on an MCP server.
func (f *Factory) RegisterMCP(srv *mcp.Server) {
	f.registerCreateTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type createReq struct {
	ContentKind    string             `json:"content_kind"`
	AnnotationType string             `json:"annotation_type"`
	Point          *geom.Point        `json:"point,omitempty"`
	Rect           *geom.Rect         `json:"rect,omitempty"`
	PageIndex      *int               `json:"page_index,omitempty"`
	Timestamp      *float64           `json:"timestamp,omitempty"`
	Selection      *TextSelection     `json:"selection,omitempty"`
	CaptureScroll  *geom.Point        `json:"capture_scroll,omitempty"`
	Viewport       geom.ViewportState `json:"viewport"`
}

func (f *Factory) registerCreateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pinmark_create_target",
		Description: "Build a durable annotation target from an interaction descriptor and the viewport state it happened under.",
		InputSchema: inputSchema(map[string]any{
			"content_kind":    map[string]any{"type": "string", "description": "image | document | video | web"},
			"annotation_type": map[string]any{"type": "string", "description": "PIN | BOX | HIGHLIGHT | TIMESTAMP"},
			"point":           map[string]any{"type": "object", "description": "Screen-px click point (pins)"},
			"rect":            map[string]any{"type": "object", "description": "Screen-px drag rect (boxes)"},
			"page_index":      map[string]any{"type": "integer", "description": "Page the interaction landed on (documents)"},
			"timestamp":       map[string]any{"type": "number", "description": "Playback position in seconds (video)"},
			"selection":       map[string]any{"type": "object", "description": "Selected text with context (highlights)"},
			"capture_scroll":  map[string]any{"type": "object", "description": "Embedded document scroll at capture (web)"},
			"viewport":        map[string]any{"type": "object", "description": "Viewport state: zoom, scroll, viewport, design"},
		}, []string{"content_kind", "annotation_type", "viewport"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*createReq)
		if err := r.Viewport.Validate(); err != nil {
			return nil, err
		}
		m := geom.NewMapper(r.Viewport)
		in := Interaction{
			Point:         r.Point,
			Rect:          r.Rect,
			PageIndex:     r.PageIndex,
			Timestamp:     r.Timestamp,
			CaptureScroll: r.CaptureScroll,
			Selection:     r.Selection,
		}
		t, err := f.CreateFromInteraction(
			target.ContentKind(r.ContentKind),
			target.AnnotationType(r.AnnotationType),
			in, m,
		)
		if err != nil {
			return nil, fmt.Errorf("create target: %w", err)
		}
		return t, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r createReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
