package bootstrap

import (
	"context"
	"fmt"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/gateway/authorizenet"
	"github.com/fusionbox/dinero/internal/gateway/mercadopago"
	"github.com/fusionbox/dinero/internal/infrastructure/config"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	"github.com/fusionbox/dinero/internal/transport"
	"github.com/rs/zerolog"
)

// BuildRegistry creates one instrumented gateway per configured entry. The
// XML gateways share one poster so the circuit breakers are per host, not
// per gateway. Entries with resolve_on_start discover their endpoint here
// and fail the build when they cannot.
func BuildRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*gateway.Registry, error) {
	poster := transport.NewHTTPPoster(posterConfig(cfg.Transport),
		transport.WithLogger(logger.With().Str("component", "transport").Logger()),
		transport.WithMetrics(metrics),
	)

	gws := make([]gateway.Gateway, 0, len(cfg.Gateways))
	for _, name := range cfg.GatewayNames() {
		gc := cfg.Gateways[name]
		gwLogger := observability.WithFields(logger, map[string]any{"gateway": name, "gateway_type": gc.Type})

		var g gateway.Gateway
		switch gc.Type {
		case config.GatewayAuthorizeNet:
			g = authorizenet.New(authorizenet.Config{
				Name:           name,
				LoginID:        gc.LoginID,
				TransactionKey: gc.TransactionKey,
				Endpoint:       gc.Endpoint,
				SandboxURL:     gc.SandboxURL,
				LiveURL:        gc.LiveURL,
				ValidationMode: gc.ValidationMode,
			}, poster, authorizenet.WithLogger(gwLogger), authorizenet.WithMetrics(metrics))
		case config.GatewayMercadoPago:
			clients, err := mercadopago.NewClients(gc.AccessToken)
			if err != nil {
				return nil, fmt.Errorf("gateway %q: %w", name, err)
			}
			g = mercadopago.New(name, clients, mercadopago.WithLogger(gwLogger))
		default:
			return nil, fmt.Errorf("gateway %q: unknown type %q: %w", name, gc.Type, domainErrors.ErrConfiguration)
		}

		instrumented := gateway.Instrument(g, logger, metrics)
		if gc.ResolveOnStart {
			url, err := instrumented.Resolve(ctx)
			if err != nil {
				return nil, fmt.Errorf("resolve gateway %q: %w", name, err)
			}
			gwLogger.Info().Str("url", url).Msg("Gateway endpoint resolved")
		}
		gws = append(gws, instrumented)
	}

	return gateway.NewRegistry(cfg.DefaultGateway, gws...)
}

func posterConfig(tc config.TransportConfig) transport.Config {
	pc := transport.DefaultConfig()
	if tc.Timeout > 0 {
		pc.Timeout = tc.Timeout
	}
	if tc.MaxResponseBytes > 0 {
		pc.MaxResponseBytes = tc.MaxResponseBytes
	}
	b := tc.Breaker
	if b.MaxRequests > 0 {
		pc.Breaker.MaxRequests = b.MaxRequests
	}
	if b.Interval > 0 {
		pc.Breaker.Interval = b.Interval
	}
	if b.Timeout > 0 {
		pc.Breaker.Timeout = b.Timeout
	}
	if b.MinRequests > 0 {
		pc.Breaker.MinRequests = b.MinRequests
	}
	if b.FailureRatio > 0 {
		pc.Breaker.FailureRatio = b.FailureRatio
	}
	return pc
}
