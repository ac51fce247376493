// Package token issues LiveKit room admission tokens.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/infrastructure/metrics"
	"avatar-bridge/internal/utils/platformerrors"
)

// Grant describes the room admission encoded in a token.
type Grant struct {
	Room     string
	Identity string
	Name     string
	TTL      time.Duration
	Agent    bool
	Metadata string
}

// Signer turns a Grant into a signed JWT.
type Signer interface {
	Sign(grant Grant) (string, error)
}

// Request is a token request. Nil fields take the configured defaults;
// fields explicitly set to "" are rejected.
type Request struct {
	Room        *string `json:"room,omitempty"`
	Participant *string `json:"participant,omitempty"`
	Identity    *string `json:"identity,omitempty"`
	Agent       bool    `json:"agent,omitempty"`
	Metadata    string  `json:"metadata,omitempty"`
}

// UnmarshalJSON treats a key present with a null value as set to "", so
// {"room": null} is rejected instead of silently taking the default.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, field := range map[string]**string{
		"room":        &p.Room,
		"participant": &p.Participant,
		"identity":    &p.Identity,
	} {
		if v, ok := raw[key]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			*field = new(string)
		}
	}
	*r = Request(p)
	return nil
}

// Token is an issued access token.
type Token struct {
	Token       string    `json:"token"`
	Room        string    `json:"room"`
	Participant string    `json:"participant"`
	Identity    string    `json:"identity"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	ServerURL   string    `json:"server_url"`
}

// ClientConfig is the public configuration handed to clients.
type ClientConfig struct {
	LiveKitURL         string `json:"livekit_url"`
	DefaultRoom        string `json:"default_room"`
	DefaultParticipant string `json:"default_participant"`
	TokenExpirySeconds int64  `json:"token_expiry_seconds"`
}

// Settings are the issuing defaults.
type Settings struct {
	ServerURL          string
	DefaultRoom        string
	DefaultParticipant string
	TTL                time.Duration
}

// Service issues tokens.
type Service interface {
	Issue(ctx context.Context, req Request, source string) (*Token, error)
	ClientConfig() ClientConfig
}

type service struct {
	signer   Signer
	settings Settings
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a token service.
func NewService(signer Signer, settings Settings, log zerolog.Logger) Service {
	if settings.TTL <= 0 {
		settings.TTL = time.Hour
	}
	return &service{
		signer:   signer,
		settings: settings,
		now:      time.Now,
		log:      log.With().Str("component", "token-service").Logger(),
	}
}

func valueOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return strings.TrimSpace(*p)
}

func (s *service) Issue(ctx context.Context, req Request, source string) (*Token, error) {
	room := valueOr(req.Room, s.settings.DefaultRoom)
	participant := valueOr(req.Participant, s.settings.DefaultParticipant)
	if room == "" || participant == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"Missing required parameters: room and participant", nil)
	}
	identity := valueOr(req.Identity, participant)
	if identity == "" {
		identity = participant
	}

	start := s.now()
	jwt, err := s.signer.Sign(Grant{
		Room:     room,
		Identity: identity,
		Name:     participant,
		TTL:      s.settings.TTL,
		Agent:    req.Agent,
		Metadata: req.Metadata,
	})
	metrics.TokenGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Error().Err(err).Str("room", room).Str("identity", identity).Msg("failed to generate token")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"Failed to generate token", err)
	}
	metrics.TokensIssued.WithLabelValues(source).Inc()

	s.log.Info().
		Str("room", room).
		Str("identity", identity).
		Bool("agent", req.Agent).
		Str("source", source).
		Msg("token issued")

	return &Token{
		Token:       jwt,
		Room:        room,
		Participant: participant,
		Identity:    identity,
		ExpiresIn:   int64(s.settings.TTL / time.Second),
		ExpiresAt:   start.Add(s.settings.TTL).UTC(),
		ServerURL:   s.settings.ServerURL,
	}, nil
}

func (s *service) ClientConfig() ClientConfig {
	return ClientConfig{
		LiveKitURL:         s.settings.ServerURL,
		DefaultRoom:        s.settings.DefaultRoom,
		DefaultParticipant: s.settings.DefaultParticipant,
		TokenExpirySeconds: int64(s.settings.TTL / time.Second),
	}
}
