package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/opagate/internal/config"
	"github.com/vyrodovalexey/opagate/internal/health"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway runs the public listener and the optional admin listener.
type Gateway struct {
	config    *config.Config
	logger    observability.Logger
	checker   *health.Checker
	public    *Listener
	admin     *Listener
	state     atomic.Int32
	startTime time.Time
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithAdminHandler serves handler on observability.metrics.address when
// metrics are enabled.
func WithAdminHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		if handler == nil || !g.config.Observability.Metrics.Enabled {
			return
		}
		g.admin = NewListener(ListenerConfig{
			Name:    "admin",
			Address: g.config.Observability.Metrics.Address,
		}, handler)
	}
}

// WithHealthChecker sets the checker that is drained on Stop.
func WithHealthChecker(checker *health.Checker) Option {
	return func(g *Gateway) {
		g.checker = checker
	}
}

// New creates a gateway serving handler on server.address.
func New(cfg *config.Config, handler http.Handler, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	g := &Gateway{
		config: cfg,
		logger: observability.NopLogger(),
	}
	g.public = NewListener(ListenerConfig{
		Name:         "public",
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
	}, handler)

	for _, opt := range opts {
		opt(g)
	}

	g.public.logger = g.logger
	if g.admin != nil {
		g.admin.logger = g.logger
	}
	g.state.Store(int32(StateStopped))

	return g, nil
}

// Start starts the listeners.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.logger.Info("starting gateway",
		observability.String("address", g.config.Server.Address),
		observability.String("upstream", g.config.Upstream.URL),
	)

	if err := g.public.Start(ctx); err != nil {
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to start listener %s: %w", g.public.Name(), err)
	}
	if g.admin != nil {
		if err := g.admin.Start(ctx); err != nil {
			_ = g.public.Stop(ctx)
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start listener %s: %w", g.admin.Name(), err)
		}
	}

	g.startTime = time.Now()
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("address", g.public.Address()),
	)

	return nil
}

// Stop marks the gateway as draining and shuts the listeners down. Without
// a deadline on ctx, server.shutdownTimeout applies.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway")

	if g.checker != nil {
		g.checker.SetDraining(true)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Server.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout))
		defer cancel()
	}

	var errs []error
	if err := g.public.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if g.admin != nil {
		if err := g.admin.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped",
		observability.Duration("uptime", time.Since(g.startTime)),
	)

	return errors.Join(errs...)
}

// State returns the current state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Address returns the bound public address.
func (g *Gateway) Address() string {
	return g.public.Address()
}

// AdminAddress returns the bound admin address, or "" without one.
func (g *Gateway) AdminAddress() string {
	if g.admin == nil {
		return ""
	}
	return g.admin.Address()
}
