package interfaces

import (
	"github.com/google/wire"

	"avatar-bridge/internal/interfaces/httpserver"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	"avatar-bridge/internal/interfaces/httpserver/routes"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	httpserver.New,
)
