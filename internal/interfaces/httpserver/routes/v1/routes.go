package v1

import (
	"github.com/gin-gonic/gin"

	"avatar-bridge/internal/interfaces/httpserver/handlers"
)

// Routes holds the v1 route configuration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes creates a new v1 routes instance.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register registers all v1 routes on the engine. Inbound webhooks carry
// their own signatures and are never behind authMiddleware.
func (r *Routes) Register(engine *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := engine.Group("/v1")
	RegisterWebhookIngressRoutes(public, r.handlers.Webhook, r.handlers.LiveKit)

	protected := engine.Group("/v1")
	if authMiddleware != nil {
		protected.Use(authMiddleware)
	}
	RegisterTokenRoutes(protected, r.handlers.Token)
	RegisterSessionRoutes(protected, r.handlers.Session)
	RegisterWebhookAdminRoutes(protected, r.handlers.Webhook)
}

// Endpoints lists the v1 routes for the not-found response.
func Endpoints() []string {
	return []string{
		"GET /v1/token",
		"POST /v1/token",
		"GET /v1/config",
		"POST /v1/sessions",
		"GET /v1/sessions",
		"GET /v1/sessions/{id}",
		"DELETE /v1/sessions/{id}",
		"POST /v1/webhooks",
		"POST /v1/webhooks/livekit",
		"GET /v1/webhooks/stats",
		"GET /v1/webhooks/dead-letters",
		"POST /v1/webhooks/dead-letters/{id}/replay",
	}
}
