package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"avatar-bridge/internal/infrastructure/auth"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	v1 "avatar-bridge/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1            *v1.Routes
	authValidator *auth.Validator
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, authValidator *auth.Validator) *Provider {
	return &Provider{
		V1:            v1.NewRoutes(handlerProvider),
		authValidator: authValidator,
	}
}

// Register registers all routes on the engine.
func (p *Provider) Register(engine *gin.Engine) {
	if p.authValidator != nil {
		p.V1.Register(engine, p.authValidator.Middleware())
	} else {
		p.V1.Register(engine, nil)
	}
}

// RouteProvider provides routes for wire.
var RouteProvider = wire.NewSet(
	NewProvider,
)
