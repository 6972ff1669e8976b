// CLAUDE:SUMMARY CLI entry point for pinmark — offline target resolution, creation, page dims, and MCP serving.
// Command pinmark resolves and creates annotation targets from the
// command line, and serves the same operations as MCP tools.
//
// Usage:
//
//	pinmark -mcp                                      # serve tools over stdio
//	pinmark -resolve targets.json -html page.html -viewport vp.json
//	pinmark -resolve targets.json -url https://example.com -viewport vp.json
//	pinmark -dims manual.pdf                          # per-page design sizes
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/capture"
	"github.com/hazyhaar/pinmark/config"
	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/livedom"
	"github.com/hazyhaar/pinmark/pagegeom"
	"github.com/hazyhaar/pinmark/resolve"
	"github.com/hazyhaar/pinmark/target"
)

func main() {
	configPath := flag.String("config", "", "path to pinmark.yaml config file")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio")
	resolvePath := flag.String("resolve", "", "resolve targets from a JSON file")
	htmlPath := flag.String("html", "", "HTML document for web-target resolution")
	liveURL := flag.String("url", "", "resolve against a live page instead of an -html file")
	viewportPath := flag.String("viewport", "", "viewport state JSON for resolution")
	dimsPath := flag.String("dims", "", "print per-page design sizes of a document")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *mcpMode, *resolvePath, *htmlPath, *liveURL, *viewportPath, *dimsPath); err != nil {
		logger.Error("pinmark: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string, mcpMode bool, resolvePath, htmlPath, liveURL, viewportPath, dimsPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	switch {
	case mcpMode:
		return runMCP(ctx, logger, cfg)
	case dimsPath != "":
		return runDims(dimsPath)
	case resolvePath != "" && liveURL != "":
		return runResolveLive(ctx, logger, cfg, resolvePath, liveURL, viewportPath)
	case resolvePath != "":
		return runResolve(resolvePath, htmlPath, viewportPath)
	}

	fmt.Fprintln(os.Stderr, "usage: pinmark -mcp | -resolve <targets.json> -viewport <vp.json> [-html <page.html> | -url <url>] | -dims <file.pdf>")
	os.Exit(1)
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "pinmark",
		Version: "1.0.0",
	}, nil)

	factory := capture.New(capture.Options{
		Snippets: cfg.Capture.Snippets,
		Previews: cfg.Capture.Previews,
		Logger:   logger,
	})
	factory.RegisterMCP(srv)
	resolve.RegisterMCP(srv)
	pagegeom.RegisterMCP(srv)

	logger.Info("pinmark: MCP serving on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runDims(path string) error {
	sizes, err := pagegeom.DimsFile(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sizes)
}

// resolveResult pairs a target with its resolution outcome.
type resolveResult struct {
	Index    int        `json:"index"`
	Resolved bool       `json:"resolved"`
	Rect     *geom.Rect `json:"rect,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func runResolve(targetsPath, htmlPath, viewportPath string) error {
	if viewportPath == "" {
		return fmt.Errorf("resolve requires -viewport")
	}

	var state geom.ViewportState
	if err := readJSON(viewportPath, &state); err != nil {
		return fmt.Errorf("viewport: %w", err)
	}
	if err := state.Validate(); err != nil {
		return err
	}

	var targets []target.Target
	if err := readJSON(targetsPath, &targets); err != nil {
		return fmt.Errorf("targets: %w", err)
	}

	var doc *html.Node
	if htmlPath != "" {
		f, err := os.Open(htmlPath)
		if err != nil {
			return err
		}
		doc, err = html.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parse html: %w", err)
		}
	}

	// Offline resolution: the wrapper fills the viewport untransformed,
	// and the document's scrollable size is the captured design size.
	m := geom.NewMapper(state)
	view := resolve.WebView{
		Wrapper:    &geom.Rect{W: state.Viewport.Width, H: state.Viewport.Height},
		Transform:  "none",
		Doc:        doc,
		ScrollSize: state.Design,
	}

	results := make([]resolveResult, 0, len(targets))
	for i := range targets {
		rect, ok, err := resolve.ScreenRect(&targets[i], view, m)
		res := resolveResult{Index: i, Resolved: ok}
		if err != nil {
			res.Error = err.Error()
		}
		if ok {
			r := rect
			res.Rect = &r
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// runResolveLive opens the page in a browser and resolves against its
// current state, with live element and text-range measurement.
func runResolveLive(ctx context.Context, logger *slog.Logger, cfg *config.Config, targetsPath, url, viewportPath string) error {
	if viewportPath == "" {
		return fmt.Errorf("resolve requires -viewport")
	}

	var state geom.ViewportState
	if err := readJSON(viewportPath, &state); err != nil {
		return fmt.Errorf("viewport: %w", err)
	}
	if err := state.Validate(); err != nil {
		return err
	}

	var targets []target.Target
	if err := readJSON(targetsPath, &targets); err != nil {
		return fmt.Errorf("targets: %w", err)
	}

	session, err := livedom.Open(livedom.Config{
		RemoteURL:       cfg.Browser.Remote,
		Stealth:         cfg.Browser.Stealth,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	page, err := session.OpenPage(ctx, url)
	if err != nil {
		return err
	}
	defer page.Close()

	view, err := page.GatherWebView(ctx, cfg.Resolve.WrapperSelector)
	if err != nil {
		return err
	}

	m := geom.NewMapper(state)
	results := make([]resolveResult, 0, len(targets))
	for i := range targets {
		rect, ok, err := resolve.ScreenRect(&targets[i], view, m)
		res := resolveResult{Index: i, Resolved: ok}
		if err != nil {
			res.Error = err.Error()
		}
		if ok {
			r := rect
			res.Rect = &r
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
