//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain"
	"avatar-bridge/internal/domain/session"
	"avatar-bridge/internal/domain/token"
	"avatar-bridge/internal/infrastructure/auth"
	"avatar-bridge/internal/infrastructure/livekit"
	"avatar-bridge/internal/infrastructure/store"
	"avatar-bridge/internal/interfaces"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
)

// InfrastructureProvider is the wire set for infrastructure clients.
var InfrastructureProvider = wire.NewSet(
	livekit.NewTokenGenerator,
	wire.Bind(new(token.Signer), new(*livekit.TokenGenerator)),
	livekit.NewRoomClient,
	wire.Bind(new(store.RoomLister), new(*livekit.RoomClient)),
	livekit.NewWebhookVerifier,
	wire.Bind(new(handlers.LiveKitEventReceiver), new(*livekit.WebhookVerifier)),
	store.NewMemoryStore,
	wire.Bind(new(session.Store), new(*store.MemoryStore)),
	ProvideSyncer,
	ProvideDeadLetterStore,
	ProvideSender,
	ProvideNotifier,
	ProvideDynamics,
	auth.NewValidator,
)

// ProvideSyncer provides a session syncer.
func ProvideSyncer(
	sessionStore session.Store,
	sessions session.Service,
	rooms store.RoomLister,
	cfg *config.Config,
	log zerolog.Logger,
) *store.Syncer {
	return store.NewSyncer(sessionStore, sessions, rooms, cfg.SessionStaleTTL, cfg.SessionCleanupInterval, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, error) {
	wire.Build(
		InfrastructureProvider,
		domain.ServiceProvider,
		interfaces.InterfacesProvider,
		NewApplication,
	)
	return nil, nil
}
