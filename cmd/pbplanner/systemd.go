package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/daemon"

	"github.com/abrezinsky/pbplanner/internal/logger"
)

// notifySystemd reports readiness and, when the unit has a watchdog, keeps
// petting it while the health endpoint answers. Outside systemd both are no-ops.
func notifySystemd(ctx context.Context, log logger.Logger, addr net.Addr) {
	if sent, err := daemon.SdNotify(false, "READY=1"); err != nil {
		log.Warn("Failed to notify systemd", "error", err)
	} else if sent {
		log.Debug("Notified systemd of readiness")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	log.Info("Activating systemd watchdog", "interval", interval)
	go watchdog(ctx, healthURL(addr), interval/3)
}

func watchdog(ctx context.Context, url string, every time.Duration) {
	client := &http.Client{Timeout: every}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				daemon.SdNotify(false, "WATCHDOG=1")
			}
		}
	}
}

// healthURL points at the health endpoint on the loopback side of addr
func healthURL(addr net.Addr) string {
	port := "80"
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = fmt.Sprint(tcp.Port)
	} else if _, p, err := net.SplitHostPort(addr.String()); err == nil {
		port = p
	}
	return "http://" + net.JoinHostPort("127.0.0.1", port) + "/healthz"
}
