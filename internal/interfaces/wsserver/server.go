// Package wsserver accepts audio clients over WebSocket and feeds them to
// the avatar streamer.
package wsserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/streamer"
	"avatar-bridge/internal/interfaces/httpserver/middlewares"
)

// Sink receives client messages.
type Sink interface {
	HandleMessage(binary bool, data []byte)
	ClientConnected()
	ClientDisconnected()
	Stats() streamer.Stats
}

// Config configures the WebSocket server.
type Config struct {
	Addr            string
	ReadLimit       int64
	ShutdownTimeout time.Duration
}

// Server is the streamer's WebSocket endpoint.
type Server struct {
	cfg      Config
	sink     Sink
	engine   *gin.Engine
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New creates a server.
func New(cfg Config, sink Sink, log zerolog.Logger) *Server {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 1 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		cfg:  cfg,
		sink: sink,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws-server").Logger(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.RequestID())
	engine.GET("/ws", s.handleWS)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.sink.Stats())
	})
	s.engine = engine
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("WebSocket server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.ReadLimit)

	log := s.log.With().
		Str("client", c.Request.RemoteAddr).
		Str("request_id", middlewares.GetRequestID(c)).
		Logger()

	s.sink.ClientConnected()
	defer s.sink.ClientDisconnected()
	log.Info().Msg("audio client connected")

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("audio client disconnected")
			} else {
				log.Warn().Err(err).Msg("audio client connection lost")
			}
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			s.sink.HandleMessage(true, data)
		case websocket.TextMessage:
			s.sink.HandleMessage(false, data)
		}
	}
}
