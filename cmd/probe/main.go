// Command probe resolves the endpoint of every configured gateway and
// reports which one answered.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fusionbox/dinero/internal/bootstrap"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/infrastructure/config"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.InitLogger("dinero-probe", cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Endpoints are resolved below; resolve_on_start would only duplicate it.
	for name, gc := range cfg.Gateways {
		gc.ResolveOnStart = false
		cfg.Gateways[name] = gc
	}

	registry, err := bootstrap.BuildRegistry(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build gateways: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, name := range registry.Names() {
		g, _ := registry.Get(name)
		resolver, ok := g.(gateway.Resolver)
		if !ok {
			fmt.Printf("%s\tskipped\n", name)
			continue
		}
		url, err := resolver.Resolve(ctx)
		switch {
		case err != nil:
			failed = true
			fmt.Printf("%s\terror: %v\n", name, err)
		case url == "":
			// REST gateways have a fixed endpoint.
			fmt.Printf("%s\tfixed\n", name)
		default:
			fmt.Printf("%s\t%s\n", name, url)
		}
	}

	if failed {
		os.Exit(1)
	}
}
