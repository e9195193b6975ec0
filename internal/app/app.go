package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/pbplanner/internal/auth"
	"github.com/abrezinsky/pbplanner/internal/config"
	"github.com/abrezinsky/pbplanner/internal/handlers"
	"github.com/abrezinsky/pbplanner/internal/kvstore"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/metrics"
	"github.com/abrezinsky/pbplanner/internal/notify"
	"github.com/abrezinsky/pbplanner/internal/repository"
	"github.com/abrezinsky/pbplanner/internal/services"
	"github.com/abrezinsky/pbplanner/internal/stream"
	"github.com/abrezinsky/pbplanner/internal/websocket"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// App holds all application dependencies
type App struct {
	cfg       *config.Config
	log       logger.Logger
	repo      *repository.Repository
	access    *services.AccessService
	handlers  *handlers.Handlers
	metrics   *metrics.Manager
	publisher *notify.AMQPPublisher
	baseURL   string

	// ctx scopes background workers and every request; cancelled by Close
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates and initializes a new application instance
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := kvstore.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	repo := repository.New(store, log)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cfg: cfg, log: log, repo: repo, ctx: ctx, cancel: cancel}

	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	locks := services.NewEventLocks()
	events := services.NewEventService(a.log, a.repo, locks)
	roster := services.NewRosterService(a.log, a.repo, locks)
	assignments := services.NewAssignmentService(a.log, a.repo, locks)
	a.access = services.NewAccessService(a.log, a.repo)

	password, created, err := a.access.Bootstrap(a.ctx, a.cfg.OfficerPassword)
	if err != nil {
		return fmt.Errorf("failed to provision officer password: %w", err)
	}
	if created {
		a.log.Info("Officer password provisioned", "password", password)
	}

	a.metrics = metrics.New()

	// Initialize push channels
	waker := notify.NewWaker()
	hub := websocket.New(a.log.With("component", "websocket"), events)
	hub.SetTracker(a.metrics)
	hub.Start(a.ctx)

	streamer := stream.New(a.log.With("component", "stream"), events, waker, a.cfg.StreamInterval)
	streamer.SetTracker(a.metrics)

	fanout := notify.NewFanout(waker, hub, a.metrics)
	if a.cfg.AMQPURL != "" {
		publisher, err := notify.NewAMQPPublisher(a.log.With("component", "amqp"), a.cfg.AMQPURL, a.cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to start change feed: %w", err)
		}
		a.publisher = publisher
		go publisher.Run(a.ctx)
		fanout.Add(publisher)
	}

	events.SetBroadcaster(fanout)
	roster.SetBroadcaster(fanout)
	assignments.SetBroadcaster(fanout)

	a.baseURL = a.cfg.BaseURL
	if a.baseURL == "" {
		a.baseURL = defaultBaseURL(a.cfg.Addr, getPreferredIP(realNetworkProvider{}))
	}

	gate := auth.NewGate(a.access, a.cfg.EnforceOfficer)
	a.handlers = handlers.New(events, roster, assignments, a.access, gate, hub, streamer, a.log)
	a.handlers.SetMetrics(a.metrics)
	a.handlers.SetBaseURL(a.baseURL)
	return nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL returns the externally reachable address
func (a *App) BaseURL() string {
	return a.baseURL
}

// OfficerPassword returns the current shared officer secret, empty when
// none is provisioned
func (a *App) OfficerPassword(ctx context.Context) (string, error) {
	secret, err := a.repo.GetSecret(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return secret.Password, nil
}

// Close cancels background workers and open streams, then releases the
// change feed and the store. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		if a.publisher != nil {
			a.publisher.Close()
		}
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close store", "error", err)
		}
	})
}

// Run listens on the configured address and serves until ctx is cancelled.
// ready, if set, is called with the bound address once the listener is open.
func (a *App) Run(ctx context.Context, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return err
	}
	return a.serve(ctx, ln, ready)
}

func (a *App) serve(ctx context.Context, ln net.Listener, ready func(net.Addr)) error {
	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return a.ctx },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
		case <-a.ctx.Done():
		}
		// streams hold their connections open until their context ends
		a.cancel()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	a.log.Info("Server starting", "url", a.baseURL, "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		a.cancel()
		<-shutdownErr
		return err
	}

	err := <-shutdownErr
	a.log.Info("Server stopped")
	return err
}

// defaultBaseURL combines the preferred LAN address with the listen port.
// An explicit listen host other than the wildcard is kept as is.
func defaultBaseURL(addr, ip string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + ip
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = ip
	}
	return "http://" + net.JoinHostPort(host, port)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for players on the LAN to
// reach the signup page. Private ranges win; localhost is the last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if isPrivateIPv4(ip) {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

// isPrivateIPv4 reports whether ip is in 10/8, 172.16/12 or 192.168/16
func isPrivateIPv4(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	return ip4.IsPrivate()
}
