package main

import (
	"context"
	"os"

	"golang.org/x/term"
)

// listenForKeyboard reads single key presses from stdin until ctx ends or
// the operator quits. It does nothing when stdin is not a terminal.
func listenForKeyboard(ctx context.Context, c *console, out *termWriter) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		c.log.Debug("Stdin is not a terminal, keyboard shortcuts disabled")
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		c.log.Warn("Failed to enable keyboard shortcuts", "error", err)
		return
	}
	out.setRaw(true)
	defer func() {
		out.setRaw(false)
		_ = term.Restore(fd, oldState)
	}()

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok || !c.handleKey(ctx, key) {
				return
			}
		}
	}
}
