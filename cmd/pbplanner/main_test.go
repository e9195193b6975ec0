package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/abrezinsky/pbplanner/internal/config"
	"github.com/abrezinsky/pbplanner/internal/logger"
)

func TestApplyFlags_OnlyExplicitFlagsOverride(t *testing.T) {
	cfg := config.New()
	cfg.Addr = ":7000"
	cfg.DBPath = "from-file.db"
	cfg.EnforceOfficer = true

	var opts cliOptions
	fs := newFlagSet(&opts, io.Discard)
	if err := fs.Parse([]string{"-db", "flag.db", "-nokeyboard", "-loglevel", "debug"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	applyFlags(fs, &opts, cfg)

	if cfg.Addr != ":7000" {
		t.Errorf("addr should keep the loaded value, got %s", cfg.Addr)
	}
	if cfg.DBPath != "flag.db" {
		t.Errorf("expected db from flag, got %s", cfg.DBPath)
	}
	if !cfg.EnforceOfficer {
		t.Error("enforce should keep the loaded value when the flag is absent")
	}
	if cfg.Keyboard {
		t.Error("expected -nokeyboard to disable the keyboard")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
}

func TestApplyFlags_EnforceAndPassword(t *testing.T) {
	cfg := config.New()

	var opts cliOptions
	fs := newFlagSet(&opts, io.Discard)
	fs.Parse([]string{"-enforce", "-officerpw", "secret", "-addr", "127.0.0.1:9000"})
	applyFlags(fs, &opts, cfg)

	if !cfg.EnforceOfficer || cfg.OfficerPassword != "secret" || cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestNewFlagSet_UsageMentionsShortcuts(t *testing.T) {
	var buf bytes.Buffer
	var opts cliOptions
	fs := newFlagSet(&opts, &buf)
	fs.Usage()

	for _, want := range []string{"-config", "-enforce", "Keyboard Shortcuts", "PBPLANNER_"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage should mention %q", want)
		}
	}
}

func TestRun_VersionAndBadFlags(t *testing.T) {
	if code := run([]string{"-version"}); code != 0 {
		t.Errorf("expected exit 0 for -version, got %d", code)
	}
	if code := run([]string{"-no-such-flag"}); code != 2 {
		t.Errorf("expected exit 2 for an unknown flag, got %d", code)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf)
	if !strings.Contains(buf.String(), "Port Battle Planner") {
		t.Errorf("unexpected banner: %s", buf.String())
	}
}

type fakeApp struct {
	password string
	err      error
}

func (f *fakeApp) BaseURL() string { return "http://10.0.0.5:8088" }

func (f *fakeApp) OfficerPassword(ctx context.Context) (string, error) {
	return f.password, f.err
}

type fakeOpener struct {
	urls []string
	err  error
}

func (f *fakeOpener) Open(url string) error {
	f.urls = append(f.urls, url)
	return f.err
}

func newTestConsole() (*console, *bytes.Buffer, *fakeOpener, *bool) {
	var buf bytes.Buffer
	quit := false
	opener := &fakeOpener{}
	c := &console{
		app:    &fakeApp{password: "anchor-keel-sloop"},
		log:    logger.NewWithOptions(logger.Options{Level: slog.LevelInfo, Output: io.Discard}),
		out:    &buf,
		opener: opener,
		quit:   func() { quit = true },
	}
	return c, &buf, opener, &quit
}

func TestConsole_Keys(t *testing.T) {
	ctx := context.Background()

	t.Run("open", func(t *testing.T) {
		c, _, opener, _ := newTestConsole()
		if !c.handleKey(ctx, 'o') {
			t.Fatal("o should not quit")
		}
		if len(opener.urls) != 1 || opener.urls[0] != "http://10.0.0.5:8088/api/pb/list" {
			t.Errorf("unexpected opened urls %v", opener.urls)
		}
	})

	t.Run("open error", func(t *testing.T) {
		c, buf, opener, _ := newTestConsole()
		opener.err = errors.New("no display")
		c.handleKey(ctx, 'o')
		if !strings.Contains(buf.String(), "no display") {
			t.Errorf("expected the error to be printed, got %s", buf.String())
		}
	})

	t.Run("http logging toggle", func(t *testing.T) {
		c, _, _, _ := newTestConsole()
		c.handleKey(ctx, 'h')
		if !c.log.IsHTTPLoggingEnabled() {
			t.Error("expected HTTP logging on")
		}
		c.handleKey(ctx, 'H')
		if c.log.IsHTTPLoggingEnabled() {
			t.Error("expected HTTP logging off")
		}
	})

	t.Run("log level cycle", func(t *testing.T) {
		c, buf, _, _ := newTestConsole()
		c.handleKey(ctx, 'l')
		if c.log.GetLevel() != slog.LevelWarn {
			t.Errorf("expected warn after info, got %v", c.log.GetLevel())
		}
		if !strings.Contains(buf.String(), "warn") {
			t.Errorf("expected the new level to be printed, got %s", buf.String())
		}
	})

	t.Run("password", func(t *testing.T) {
		c, buf, _, _ := newTestConsole()
		c.handleKey(ctx, 'p')
		if !strings.Contains(buf.String(), "anchor-keel-sloop") {
			t.Errorf("expected the password, got %s", buf.String())
		}
	})

	t.Run("password error", func(t *testing.T) {
		c, buf, _, _ := newTestConsole()
		c.app = &fakeApp{err: errors.New("store closed")}
		c.handleKey(ctx, 'p')
		if !strings.Contains(buf.String(), "store closed") {
			t.Errorf("expected the error, got %s", buf.String())
		}
	})

	t.Run("help", func(t *testing.T) {
		c, buf, _, _ := newTestConsole()
		c.handleKey(ctx, '?')
		if !strings.Contains(buf.String(), "Keyboard Shortcuts") {
			t.Errorf("expected help, got %s", buf.String())
		}
	})

	t.Run("quit", func(t *testing.T) {
		for _, key := range []byte{'q', 0x03} {
			c, _, _, quit := newTestConsole()
			if c.handleKey(ctx, key) {
				t.Errorf("key %q should stop the listener", key)
			}
			if !*quit {
				t.Errorf("key %q should cancel the server", key)
			}
		}
	})

	t.Run("unbound key", func(t *testing.T) {
		c, buf, _, _ := newTestConsole()
		if !c.handleKey(ctx, 'z') || buf.Len() != 0 {
			t.Error("unbound keys should be ignored")
		}
	})
}

func TestTermWriter(t *testing.T) {
	var buf bytes.Buffer
	w := newTermWriter(&buf)

	w.Write([]byte("cooked\n"))
	w.setRaw(true)
	n, err := w.Write([]byte("raw\nline\n"))
	if err != nil || n != len("raw\nline\n") {
		t.Fatalf("expected full write, got %d %v", n, err)
	}

	if got := buf.String(); got != "cooked\nraw\r\nline\r\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestHealthURL(t *testing.T) {
	tcp := &net.TCPAddr{IP: net.ParseIP("0.0.0.0"), Port: 8088}
	if got := healthURL(tcp); got != "http://127.0.0.1:8088/healthz" {
		t.Errorf("unexpected url %s", got)
	}

	unix := &net.UnixAddr{Name: "/tmp/pb.sock", Net: "unix"}
	if got := healthURL(unix); got != "http://127.0.0.1:80/healthz" {
		t.Errorf("unexpected url %s", got)
	}
}
