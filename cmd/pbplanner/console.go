package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/abrezinsky/pbplanner/internal/logger"
)

// pageOpener opens a URL in a browser
type pageOpener interface {
	Open(url string) error
}

// passwordSource reads the current officer password
type passwordSource interface {
	BaseURL() string
	OfficerPassword(ctx context.Context) (string, error)
}

// console maps single key presses to operator actions
type console struct {
	app    passwordSource
	log    *logger.SlogLogger
	out    io.Writer
	opener pageOpener
	quit   context.CancelFunc
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// handleKey performs the action bound to key. It reports false once the
// operator asked to quit.
func (c *console) handleKey(ctx context.Context, key byte) bool {
	switch strings.ToLower(string(key)) {
	case "o":
		url := c.app.BaseURL() + "/api/pb/list"
		c.printf("%sOpening %s in browser...%s\n", cyan, url, reset)
		if err := c.opener.Open(url); err != nil {
			c.printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			c.printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			c.printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := logger.NextLevel(c.log.GetLevel())
		c.log.SetLevel(next)
		c.printf("%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case "p":
		pw, err := c.app.OfficerPassword(ctx)
		if err != nil {
			c.printf("%sError reading officer password: %v%s\n", red, err, reset)
			break
		}
		c.printf("%sOfficer password: %s%s%s\n", green, yellow, pw, reset)
	case "q", "\x03": // q or Ctrl+C
		c.printf("%sShutting down server...%s\n", yellow, reset)
		c.quit()
		return false
	case "?":
		c.printHelp()
	}
	return true
}

// printHelp displays all available keyboard shortcuts
func (c *console) printHelp() {
	c.printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	c.printf("    %so%s      - Open the event list in browser\n", cyan, reset)
	c.printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	c.printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	c.printf("    %sp%s      - Print the officer password\n", cyan, reset)
	c.printf("    %sq%s      - Quit server\n", cyan, reset)
	c.printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// termWriter serializes writes to the terminal and, while the terminal is in
// raw mode, turns bare newlines into CRLF so log lines start at column 0.
type termWriter struct {
	mu  sync.Mutex
	w   io.Writer
	raw atomic.Bool
}

func newTermWriter(w io.Writer) *termWriter {
	return &termWriter{w: w}
}

func (t *termWriter) setRaw(raw bool) {
	t.raw.Store(raw)
}

func (t *termWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.raw.Load() {
		return t.w.Write(p)
	}
	converted := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := t.w.Write(converted); err != nil {
		return 0, err
	}
	return len(p), nil
}
