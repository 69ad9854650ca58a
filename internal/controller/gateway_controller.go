package controller

import (
	"fmt"
	"net/http"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/middleware"
)

// GatewayController lists the gateways the caller may use.
type GatewayController struct {
	registry *gateway.Registry
}

func NewGatewayController(registry *gateway.Registry) *GatewayController {
	return &GatewayController{registry: registry}
}

// List handles GET /v1/gateways
func (h *GatewayController) List(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.registry.Names()))
	for _, name := range h.registry.Names() {
		if middleware.GatewayAllowed(r.Context(), name) {
			names = append(names, name)
		}
	}
	writeJSON(w, http.StatusOK, GatewaysResponse{
		Default:  h.registry.DefaultName(),
		Gateways: names,
	})
}

// pickGateway resolves the gateway for a request: the body field, then the
// "gateway" query parameter, then the registry default. The caller's token
// must allow it.
func pickGateway(r *http.Request, registry *gateway.Registry, requested string) (string, error) {
	name := requested
	if name == "" {
		name = r.URL.Query().Get("gateway")
	}
	if name == "" {
		name = registry.DefaultName()
	}
	if !middleware.GatewayAllowed(r.Context(), name) {
		return "", fmt.Errorf("gateway %q: %w", name, domainErrors.ErrForbidden)
	}
	return name, nil
}
