package livekit

import (
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain/token"
)

// TokenGenerator generates LiveKit access tokens.
type TokenGenerator struct {
	apiKey    string
	apiSecret string
}

// NewTokenGenerator creates a new token generator.
func NewTokenGenerator(cfg *config.Config) *TokenGenerator {
	return NewTokenGeneratorWithKeys(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
}

// NewTokenGeneratorWithKeys creates a token generator from raw credentials.
func NewTokenGeneratorWithKeys(apiKey, apiSecret string) *TokenGenerator {
	return &TokenGenerator{apiKey: apiKey, apiSecret: apiSecret}
}

// Generate creates a LiveKit access token for the given room and identity.
func (g *TokenGenerator) Generate(room, identity string, ttl time.Duration) (string, error) {
	return g.Sign(token.Grant{Room: room, Identity: identity, TTL: ttl})
}

// Sign implements token.Signer.
func (g *TokenGenerator) Sign(grant token.Grant) (string, error) {
	at := auth.NewAccessToken(g.apiKey, g.apiSecret)

	canPublish := true
	canSubscribe := true
	canPublishData := true

	video := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           grant.Room,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}

	at.AddGrant(video).
		SetIdentity(grant.Identity).
		SetValidFor(grant.TTL)
	if grant.Name != "" {
		at.SetName(grant.Name)
	}
	if grant.Metadata != "" {
		at.SetMetadata(grant.Metadata)
	}
	if grant.Agent {
		at.SetKind(livekit.ParticipantInfo_AGENT)
	}

	return at.ToJWT()
}
