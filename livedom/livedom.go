// CLAUDE:SUMMARY Rod-backed adapter gathering view snapshots from a live page.
// Package livedom connects the resolution pipeline to a real browser page
// via Rod. It serialises the page's DOM into an x/net/html tree, reads the
// embedding wrapper's geometry and transform, and supplies the live
// measurement callbacks (element boxes, text-range boxes) that resolution
// needs. All access is read-only: nothing here mutates the observed page.
package livedom

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"
)

// Config configures the browser session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	RemoteURL string
	// Stealth applies anti-detection measures to new pages. Default: true
	// when launching locally.
	Stealth bool
	// NavigateTimeout bounds page navigation. Default: 30s.
	NavigateTimeout time.Duration
	Logger          *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session owns one browser connection.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Open launches (or connects to) Chrome.
func Open(cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger

	var wsURL string
	s := &Session{cfg: cfg}

	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("livedom: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("livedom: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		s.cfg.Stealth = true
		log.Info("livedom: launched local chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("livedom: connect: %w", err)
	}
	s.browser = b
	return s, nil
}

// Close shuts down the browser connection.
func (s *Session) Close() error {
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return nil
}

// Page wraps one open tab.
type Page struct {
	p   *rod.Page
	log *slog.Logger
}

// OpenPage opens a tab and navigates to url, waiting for load.
func (s *Session) OpenPage(ctx context.Context, url string) (*Page, error) {
	var page *rod.Page
	var err error

	if s.cfg.Stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("livedom: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("livedom: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("livedom: wait load timeout", "url", url, "error", err)
	}

	return &Page{p: page, log: s.cfg.Logger}, nil
}

// Close closes the tab.
func (p *Page) Close() error { return p.p.Close() }

// DOM serialises the page's current DOM and parses it into a tree the
// anchor resolver can walk.
func (p *Page) DOM(ctx context.Context) (*html.Node, error) {
	res, err := p.p.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("livedom: serialize dom: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("livedom: parse dom: %w", err)
	}
	return doc, nil
}
