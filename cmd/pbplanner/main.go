package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/abrezinsky/pbplanner/internal/app"
	"github.com/abrezinsky/pbplanner/internal/browser"
	"github.com/abrezinsky/pbplanner/internal/config"
	"github.com/abrezinsky/pbplanner/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var version = "dev"

// cliOptions holds the command line. Only flags given explicitly override
// the loaded configuration.
type cliOptions struct {
	configPath  string
	addr        string
	dbPath      string
	logLevel    string
	officerPw   string
	enforce     bool
	noKeyboard  bool
	jsonLogs    bool
	showVersion bool
}

func newFlagSet(opts *cliOptions, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pbplanner", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&opts.addr, "addr", "", "HTTP listen address (default \":8088\")")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database path (default \"pbplanner.db\")")
	fs.StringVar(&opts.logLevel, "loglevel", "", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.officerPw, "officerpw", "", "Officer password (generated on first start if not set)")
	fs.BoolVar(&opts.enforce, "enforce", false, "Require the officer password on officer routes")
	fs.BoolVar(&opts.noKeyboard, "nokeyboard", false, "Disable keyboard shortcuts")
	fs.BoolVar(&opts.jsonLogs, "json", false, "Write logs as JSON")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(output, `pbplanner - Port Battle signup and fleet planner

Usage:
  pbplanner [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(output, `
Configuration is read from -config, $PBPLANNER_CONFIG or pbplanner.yaml next to
the binary, then overridden by PBPLANNER_* environment variables and finally by
the flags above.

Keyboard Shortcuts (when enabled):
  o              Open the event list in the browser
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  p              Print the officer password
  q              Quit server
  ?              Show keyboard help

Examples:
  pbplanner                              # Run on :8088 with pbplanner.db
  pbplanner -addr :9000 -db /data/pb.db  # Custom port and database
  pbplanner -enforce -officerpw secret   # Gate officer actions
`)
	}
	return fs
}

// applyFlags copies explicitly set flags over cfg
func applyFlags(fs *flag.FlagSet, opts *cliOptions, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = opts.addr
		case "db":
			cfg.DBPath = opts.dbPath
		case "loglevel":
			cfg.LogLevel = opts.logLevel
		case "officerpw":
			cfg.OfficerPassword = opts.officerPw
		case "enforce":
			cfg.EnforceOfficer = opts.enforce
		case "nokeyboard":
			cfg.Keyboard = !opts.noKeyboard
		}
	})
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts cliOptions
	fs := newFlagSet(&opts, os.Stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Printf("pbplanner %s\n", version)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sFailed to load configuration: %v%s\n", red, err, reset)
		return 1
	}
	applyFlags(fs, &opts, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%sInvalid configuration: %v%s\n", red, err, reset)
		return 1
	}

	out := newTermWriter(os.Stderr)
	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		JSON:   opts.jsonLogs,
		Output: out,
	})
	if cfg.HTTPLogging {
		appLog.EnableHTTPLogging()
	}

	if !opts.jsonLogs {
		printBanner(os.Stdout)
	}

	a, err := app.New(cfg, appLog)
	if err != nil {
		appLog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer a.Close()

	appLog.Info("Event list", "url", a.BaseURL()+"/api/pb/list")
	if cfg.EnforceOfficer {
		appLog.Info("Officer routes require the password header")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Keyboard {
		c := &console{
			app:    a,
			log:    appLog,
			out:    out,
			opener: browser.New(),
			quit:   cancel,
		}
		c.printHelp()
		go listenForKeyboard(ctx, c, out)
	}

	err = a.Run(ctx, func(addr net.Addr) {
		notifySystemd(ctx, appLog, addr)
	})
	if err != nil {
		appLog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// printBanner writes the startup logo
func printBanner(w io.Writer) {
	logo := []string{
		`        |    |    |          `,
		`       )_)  )_)  )_)         `,
		`      )___))___))___)\       `,
		`     )____)____)_____)\\     `,
		`   _____|____|____|____\\\__ `,
		`---\                   /-----`,
		`  ^^^^^ ^^^^^^^^^^^^^^^^^^^^^`,
	}
	fmt.Fprintln(w)
	for _, line := range logo {
		fmt.Fprintf(w, "  %s%s%s\n", cyan, line, reset)
	}
	fmt.Fprintf(w, "  %s%sPort Battle Planner%s %s\n\n", bold, yellow, reset, version)
}
