package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/kit"
	"github.com/hazyhaar/pinmark/target"
)

// RegisterMCP registers the target-resolution tool on an MCP server.
// Resolution over MCP works from serialized view descriptions: an HTML
// string stands in for the live DOM, so element targets without live
// measurement resolve through their stored fallback region.
func RegisterMCP(srv *mcp.Server) {
	registerResolveTool(srv)
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

type imageViewReq struct {
	Container geom.Rect  `json:"container"`
	Scroll    geom.Point `json:"scroll"`
	Rendered  *geom.Rect `json:"rendered,omitempty"`
	Design    geom.Size  `json:"design"`
	PageIndex int        `json:"page_index"`
}

type webViewReq struct {
	Wrapper    *geom.Rect `json:"wrapper,omitempty"`
	Transform  string     `json:"transform"`
	HTML       string     `json:"html,omitempty"`
	ScrollSize geom.Size  `json:"scroll_size"`
}

type videoViewReq struct {
	Timeline *geom.Rect `json:"timeline,omitempty"`
	Duration float64    `json:"duration"`
}

type resolveReq struct {
	Target   target.Target      `json:"target"`
	Viewport geom.ViewportState `json:"viewport"`
	Image    *imageViewReq      `json:"image,omitempty"`
	Web      *webViewReq        `json:"web,omitempty"`
	Video    *videoViewReq      `json:"video,omitempty"`
}

type resolveResp struct {
	Resolved bool       `json:"resolved"`
	Rect     *geom.Rect `json:"rect,omitempty"`
}

func registerResolveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pinmark_resolve_target",
		Description: "Resolve a stored annotation target against a described view, returning the current on-screen rectangle or resolved=false.",
		InputSchema: inputSchema(map[string]any{
			"target":   map[string]any{"type": "object", "description": "The stored target (mode-discriminated union)"},
			"viewport": map[string]any{"type": "object", "description": "Viewport state: zoom, scroll, viewport, design"},
			"image":    map[string]any{"type": "object", "description": "Image/document view: container, scroll, rendered, design, page_index"},
			"web":      map[string]any{"type": "object", "description": "Web view: wrapper, transform, html, scroll_size"},
			"video":    map[string]any{"type": "object", "description": "Video view: timeline, duration"},
		}, []string{"target", "viewport"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*resolveReq)
		if err := r.Viewport.Validate(); err != nil {
			return nil, err
		}
		view, err := r.view()
		if err != nil {
			return nil, err
		}

		m := geom.NewMapper(r.Viewport)
		rect, ok, err := ScreenRect(&r.Target, view, m)
		if err != nil {
			return nil, fmt.Errorf("resolve target: %w", err)
		}
		if !ok {
			return resolveResp{Resolved: false}, nil
		}
		return resolveResp{Resolved: true, Rect: &rect}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r resolveReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (r *resolveReq) view() (View, error) {
	switch {
	case r.Image != nil:
		return ImageView{
			Container: r.Image.Container,
			Scroll:    r.Image.Scroll,
			Rendered:  r.Image.Rendered,
			Design:    r.Image.Design,
			PageIndex: r.Image.PageIndex,
		}, nil
	case r.Web != nil:
		v := WebView{
			Wrapper:    r.Web.Wrapper,
			Transform:  r.Web.Transform,
			ScrollSize: r.Web.ScrollSize,
		}
		if r.Web.HTML != "" {
			doc, err := html.Parse(strings.NewReader(r.Web.HTML))
			if err != nil {
				return nil, fmt.Errorf("parse html: %w", err)
			}
			v.Doc = doc
		}
		return v, nil
	case r.Video != nil:
		return VideoView{Timeline: r.Video.Timeline, Duration: r.Video.Duration}, nil
	default:
		return nil, fmt.Errorf("one of image, web, video view is required")
	}
}
