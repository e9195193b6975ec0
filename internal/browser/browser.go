// Package browser opens pages in the operator's default browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start executes a command without waiting for it
func (RealCommander) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Opener launches the platform's URL handler
type Opener struct {
	Commander Commander
	GOOS      string
}

// New returns an Opener for the running platform
func New() *Opener {
	return &Opener{Commander: RealCommander{}, GOOS: runtime.GOOS}
}

// Open opens an http or https URL. Other schemes are refused so a stray
// base URL never reaches the shell handler.
func (o *Opener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: scheme must be http or https", rawURL)
	}

	name, args, err := command(o.GOOS, u.String())
	if err != nil {
		return err
	}
	return o.Commander.Start(name, args...)
}

func command(goos, target string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	case "darwin":
		return "open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
