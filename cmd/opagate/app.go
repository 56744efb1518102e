package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/opagate/internal/auth"
	"github.com/vyrodovalexey/opagate/internal/auth/jwt"
	"github.com/vyrodovalexey/opagate/internal/authz"
	"github.com/vyrodovalexey/opagate/internal/authz/external"
	"github.com/vyrodovalexey/opagate/internal/authz/provider"
	"github.com/vyrodovalexey/opagate/internal/config"
	"github.com/vyrodovalexey/opagate/internal/gateway"
	"github.com/vyrodovalexey/opagate/internal/health"
	"github.com/vyrodovalexey/opagate/internal/middleware"
	"github.com/vyrodovalexey/opagate/internal/observability"
	"github.com/vyrodovalexey/opagate/internal/proxy"
	"github.com/vyrodovalexey/opagate/internal/vault"
)

const metricsNamespace = "opagate"

// application holds the wired components.
type application struct {
	config   *config.Config
	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	client   external.Client
	provider provider.Provider
	checker  *health.Checker
	gateway  *gateway.Gateway
}

// newApplication wires every component from cfg. Components created
// before a failure are released.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (_ *application, err error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: observability.NewMetrics(metricsNamespace),
	}
	defer func() {
		if err != nil {
			app.close(context.Background())
		}
	}()

	app.metrics.SetBuildInfo(version, gitCommit)
	reg := app.metrics.Registry()

	app.tracer, err = observability.NewTracer(cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	authenticator, err := newAuthenticator(cfg, logger, reg)
	if err != nil {
		return nil, err
	}

	clientOpts := []external.ClientOption{
		external.WithLogger(logger),
		external.WithMetrics(external.NewMetrics(metricsNamespace, reg)),
	}
	if cfg.PolicyEngine.Vault.Enabled {
		ts, tsErr := vault.NewTokenSource(cfg.PolicyEngine.Vault,
			vault.WithLogger(logger),
			vault.WithMetrics(vault.NewMetrics(metricsNamespace, reg)),
		)
		if tsErr != nil {
			return nil, fmt.Errorf("failed to initialize vault token source: %w", tsErr)
		}
		clientOpts = append(clientOpts, external.WithTokenSource(ts))
	}

	app.client, err = external.NewClient(cfg.PolicyEngine.Config, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine client: %w", err)
	}

	app.provider, err = provider.New(ctx, cfg.Authz.ContextProvider, logger,
		provider.WithMetrics(provider.NewMetrics(metricsNamespace, reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize context provider: %w", err)
	}

	enforcer, err := authz.NewEnforcer(app.client, app.provider, &cfg.Authz,
		authz.WithLogger(logger),
		authz.WithMetrics(authz.NewMetrics(metricsNamespace, reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}

	app.checker = health.NewChecker(version,
		health.WithLogger(logger),
		health.WithMetrics(health.NewMetrics(metricsNamespace, reg)),
	)
	app.checker.RegisterCheck(health.CheckPolicyEngine, health.PolicyEngineCheck(app.client))
	app.checker.RegisterOptionalCheck(health.CheckContextProvider, health.ContextProviderCheck(app.provider))

	var upstream http.Handler
	if cfg.Upstream.URL != "" {
		upstream, err = proxy.NewReverseProxy(cfg.Upstream.URL,
			proxy.WithProxyLogger(logger),
			proxy.WithMetrics(proxy.NewMetrics(metricsNamespace, reg)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize upstream proxy: %w", err)
		}
	}

	routerCfg := gateway.RouterConfig{
		Logger:            logger,
		Metrics:           app.metrics,
		MiddlewareMetrics: middleware.NewMetrics(metricsNamespace, reg),
		CORS:              cfg.CORS,
		Health:            app.checker,
		Authenticator:     authenticator,
		Enforcer:          enforcer,
		Upstream:          upstream,
	}
	if cfg.Observability.Tracing.Enabled {
		routerCfg.Tracer = app.tracer
	}

	handler, err := gateway.NewRouter(routerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	app.gateway, err = gateway.New(cfg, handler,
		gateway.WithLogger(logger),
		gateway.WithAdminHandler(gateway.NewAdminRouter(app.metrics, cfg.Observability.Metrics.Path, app.checker)),
		gateway.WithHealthChecker(app.checker),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return app, nil
}

// newAuthenticator returns nil when bearer validation is disabled.
func newAuthenticator(cfg *config.Config, logger observability.Logger, reg prometheus.Registerer) (auth.Authenticator, error) {
	if !cfg.JWT.Enabled {
		return nil, nil
	}

	validator, err := jwt.NewValidator(&cfg.JWT,
		jwt.WithValidatorLogger(logger),
		jwt.WithValidatorMetrics(jwt.NewMetrics(metricsNamespace, reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token validator: %w", err)
	}

	return auth.NewAuthenticator(validator,
		auth.WithAuthenticatorLogger(logger),
		auth.WithAuthenticatorMetrics(auth.NewMetrics(metricsNamespace, reg)),
		auth.WithAllowAnonymous(cfg.JWT.AllowAnonymous),
	), nil
}

// close releases the components that hold resources.
func (a *application) close(ctx context.Context) {
	var errs []error
	if a.provider != nil {
		errs = append(errs, provider.Close(a.provider))
	}
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("failed to release resources", observability.Error(err))
	}
}
