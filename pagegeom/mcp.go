package pagegeom

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/kit"
)

// RegisterMCP registers the page-dimension tool on an MCP server.
func RegisterMCP(srv *mcp.Server) {
	registerDimsTool(srv)
}

type dimsReq struct {
	Path string `json:"path"`
}

type dimsResp struct {
	Pages []geom.Size `json:"pages"`
}

func registerDimsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pinmark_page_dims",
		Description: "Read per-page design dimensions (CSS pixels) from a paginated document file.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Document file path"},
			},
			"required": []string{"path"},
		},
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*dimsReq)
		sizes, err := DimsFile(r.Path)
		if err != nil {
			return nil, err
		}
		return dimsResp{Pages: sizes}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r dimsReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
