// @title           Avatar Bridge API
// @version         1.0
// @description     Token, session and webhook API for LiveKit-hosted bitHuman avatars.

// @host      localhost:8190
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token or API key

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain"
	"avatar-bridge/internal/domain/dynamics"
	"avatar-bridge/internal/domain/session"
	"avatar-bridge/internal/domain/webhook"
	"avatar-bridge/internal/infrastructure/auth"
	"avatar-bridge/internal/infrastructure/bithuman"
	"avatar-bridge/internal/infrastructure/deadletter"
	"avatar-bridge/internal/infrastructure/livekit"
	"avatar-bridge/internal/infrastructure/logger"
	"avatar-bridge/internal/infrastructure/observability"
	"avatar-bridge/internal/infrastructure/store"
	whsender "avatar-bridge/internal/infrastructure/webhook"
	"avatar-bridge/internal/infrastructure/wsclient"
	"avatar-bridge/internal/interfaces/httpserver"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	"avatar-bridge/internal/interfaces/httpserver/routes"
)

// Application holds the main application components.
type Application struct {
	httpServer  *httpserver.HTTPServer
	syncer      *store.Syncer
	dispatcher  *webhook.Dispatcher
	sender      *whsender.Sender
	deadLetters webhook.DeadLetterStore
	cfg         *config.Config
	log         zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(
	httpServer *httpserver.HTTPServer,
	syncer *store.Syncer,
	dispatcher *webhook.Dispatcher,
	sender *whsender.Sender,
	deadLetters webhook.DeadLetterStore,
	cfg *config.Config,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer:  httpServer,
		syncer:      syncer,
		dispatcher:  dispatcher,
		sender:      sender,
		deadLetters: deadLetters,
		cfg:         cfg,
		log:         log,
	}
}

// Start runs the application until ctx is cancelled, then drains the
// background workers.
func (a *Application) Start(ctx context.Context) error {
	a.dispatcher.Start(ctx)
	a.syncer.Start(ctx)

	err := a.httpServer.Run(ctx)

	a.syncer.Stop()
	a.dispatcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.sender.Close(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("pending lifecycle notifications dropped")
	}
	if closer, ok := a.deadLetters.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close dead-letter store")
		}
	}
	return err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth validator")
	}

	deadLetters, err := ProvideDeadLetterStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dead-letter store")
	}

	// LiveKit clients
	tokenGen := livekit.NewTokenGenerator(cfg)
	roomClient := livekit.NewRoomClient(cfg)
	verifier := livekit.NewWebhookVerifier(cfg)

	sender := ProvideSender(cfg, log)
	sessionStore := store.NewMemoryStore(log)
	sessionService := domain.ProvideSessionService(sessionStore, tokenGen, ProvideNotifier(sender), cfg, log)
	tokenService := domain.ProvideTokenService(tokenGen, cfg, log)

	syncer := store.NewSyncer(sessionStore, sessionService, roomClient, cfg.SessionStaleTTL, cfg.SessionCleanupInterval, log)

	activity := domain.ProvideAgentActivity()
	gestures := ProvideDynamics(ctx, cfg, log)
	registry := domain.ProvideRegistry(activity, gestures, log)
	dispatcher := domain.ProvideDispatcher(cfg, registry, deadLetters, log)
	receiver := domain.ProvideReceiver(cfg, dispatcher, log)

	handlerProvider := handlers.NewProvider(
		handlers.NewSessionHandler(sessionService),
		handlers.NewTokenHandler(tokenService),
		handlers.NewWebhookHandler(receiver, dispatcher, registry, activity),
		handlers.NewLiveKitHandler(verifier, sessionService, log),
	)
	httpServer := httpserver.New(cfg, log, routes.NewProvider(handlerProvider, authValidator))

	app := NewApplication(httpServer, syncer, dispatcher, sender, deadLetters, cfg, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Bool("auth", authValidator.Enabled()).
		Bool("notify", sender.Enabled()).
		Str("dead_letters", cfg.DeadLetterBackend).
		Bool("dynamics", gestures != nil).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// ProvideDeadLetterStore selects the dead-letter backend.
func ProvideDeadLetterStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (webhook.DeadLetterStore, error) {
	if cfg.DeadLetterBackend == "redis" {
		rs, err := deadletter.NewRedisStore(ctx, cfg.RedisURL, cfg.DeadLetterLimit, log)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return deadletter.NewMemoryStore(cfg.DeadLetterLimit), nil
}

// ProvideDynamics builds the chat gesture handler, or returns nil when
// dynamics are disabled. Gestures are relayed to the streamer process.
func ProvideDynamics(ctx context.Context, cfg *config.Config, log zerolog.Logger) *dynamics.Handler {
	if !cfg.DynamicsEnabled {
		return nil
	}

	var source dynamics.GestureSource
	if cfg.BithumanAgentID != "" && cfg.BithumanAPISecret != "" {
		source = bithuman.NewClient(cfg.DynamicsURL, cfg.BithumanAPISecret, cfg.DynamicsFetchTimeout)
	}
	h := dynamics.New(dynamics.Config{
		AgentID:  cfg.BithumanAgentID,
		Cooldown: cfg.DynamicsCooldown,
	}, source, wsclient.NewGestureRelay(cfg.StreamerURL, log), log)

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.DynamicsFetchTimeout)
	defer cancel()
	h.Initialize(fetchCtx)
	return h
}

// ProvideSender provides the outbound lifecycle webhook sender.
func ProvideSender(cfg *config.Config, log zerolog.Logger) *whsender.Sender {
	return whsender.NewSender(whsender.SenderConfig{
		URL:    cfg.NotifyURL,
		Secret: cfg.NotifySecret,
	}, log)
}

// ProvideNotifier returns sender as a session notifier, or nil when no
// target is configured.
func ProvideNotifier(sender *whsender.Sender) session.Notifier {
	if !sender.Enabled() {
		return nil
	}
	return sender
}
