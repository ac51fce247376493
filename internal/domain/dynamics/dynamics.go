// Package dynamics triggers avatar gestures from conversation text.
package dynamics

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/webhook"
)

// DefaultCooldown is the minimum gap between two triggers of one gesture.
const DefaultCooldown = 3 * time.Second

// Built-in gesture names.
const (
	ActionWave  = "mini_wave_hello"
	ActionLaugh = "laugh_react"
)

var (
	greetingKeywords = []string{"hello", "hi", "hey", "goodbye", "bye", "wave"}
	laughKeywords    = []string{"laugh", "laughing", "haha", "funny", "hilarious", "lol"}
)

// ErrOnCooldown is returned when a gesture fired too recently.
var ErrOnCooldown = errors.New("gesture on cooldown")

// GestureSource lists the gestures available to an agent.
type GestureSource interface {
	Gestures(ctx context.Context, agentID string) (map[string]string, error)
}

// Trigger plays a gesture on the avatar.
type Trigger interface {
	TriggerGesture(ctx context.Context, action string) error
}

// DefaultKeywordMap returns the built-in keyword to gesture mapping.
func DefaultKeywordMap() map[string]string {
	m := make(map[string]string, len(greetingKeywords)+len(laughKeywords))
	for _, k := range greetingKeywords {
		m[k] = ActionWave
	}
	for _, k := range laughKeywords {
		m[k] = ActionLaugh
	}
	return m
}

// KeywordMapFromGestures maps the greeting and laugh keywords onto whichever
// of the agent's gestures look like a wave or a laugh. Gestures are visited
// in name order so the result is stable.
func KeywordMapFromGestures(gestures map[string]string) map[string]string {
	names := make([]string, 0, len(gestures))
	for name := range gestures {
		names = append(names, name)
	}
	sort.Strings(names)

	m := make(map[string]string)
	for _, name := range names {
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "wave") || strings.Contains(lower, "hello"):
			for _, k := range greetingKeywords {
				m[k] = name
			}
		case strings.Contains(lower, "laugh"):
			for _, k := range laughKeywords {
				m[k] = name
			}
		}
	}
	return m
}

// words splits text into lower-case words.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// DetectAction returns the gesture for the earliest keyword in transcript.
// Keywords match whole words, case-insensitively; multi-word keywords match
// consecutive words. At one position the longest keyword wins.
func DetectAction(transcript string, keywords map[string]string) (keyword, action string, ok bool) {
	text := words(transcript)
	if len(text) == 0 || len(keywords) == 0 {
		return "", "", false
	}

	type entry struct {
		keyword string
		tokens  []string
	}
	entries := make([]entry, 0, len(keywords))
	for k := range keywords {
		if tokens := words(k); len(tokens) > 0 {
			entries = append(entries, entry{keyword: k, tokens: tokens})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].tokens) != len(entries[j].tokens) {
			return len(entries[i].tokens) > len(entries[j].tokens)
		}
		return entries[i].keyword < entries[j].keyword
	})

	for i := range text {
		for _, e := range entries {
			if i+len(e.tokens) > len(text) {
				continue
			}
			match := true
			for j, tok := range e.tokens {
				if text[i+j] != tok {
					match = false
					break
				}
			}
			if match {
				return e.keyword, keywords[e.keyword], true
			}
		}
	}
	return "", "", false
}

// Config configures a Handler.
type Config struct {
	// AgentID selects the agent whose gestures are fetched; empty keeps the
	// built-in mapping.
	AgentID  string
	Cooldown time.Duration
}

// Handler maps conversation text to gestures and rate-limits them per
// gesture.
type Handler struct {
	source  GestureSource
	trigger Trigger
	agentID string
	log     zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	cooldown    time.Duration
	keywords    map[string]string
	gestures    map[string]string
	lastFired   map[string]time.Time
	initialized bool
}

// New returns a handler using the built-in keyword map until Initialize
// loads the agent's gestures. source may be nil.
func New(cfg Config, source GestureSource, trigger Trigger, log zerolog.Logger) *Handler {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Handler{
		source:    source,
		trigger:   trigger,
		agentID:   strings.TrimSpace(cfg.AgentID),
		log:       log.With().Str("component", "dynamics").Logger(),
		now:       time.Now,
		cooldown:  cfg.Cooldown,
		keywords:  DefaultKeywordMap(),
		gestures:  map[string]string{},
		lastFired: map[string]time.Time{},
	}
}

// AgentID returns the agent whose gestures the handler serves.
func (h *Handler) AgentID() string {
	return h.agentID
}

// Initialize fetches the agent's gestures once and merges the derived
// keywords over the defaults. A failed fetch is logged and the defaults stay
// in place.
func (h *Handler) Initialize(ctx context.Context) {
	h.mu.Lock()
	if h.initialized {
		h.mu.Unlock()
		return
	}
	h.initialized = true
	h.mu.Unlock()

	if h.source == nil || h.agentID == "" {
		h.log.Info().Msg("no agent configured, using default gesture keywords")
		return
	}

	gestures, err := h.source.Gestures(ctx, h.agentID)
	if err != nil {
		h.log.Warn().Err(err).Str("agent_id", h.agentID).Msg("failed to fetch gestures, using default keywords")
		return
	}
	if len(gestures) == 0 {
		h.log.Info().Str("agent_id", h.agentID).Msg("agent has no gestures, using default keywords")
		return
	}

	derived := KeywordMapFromGestures(gestures)
	h.mu.Lock()
	h.gestures = gestures
	for k, action := range derived {
		h.keywords[k] = action
	}
	h.mu.Unlock()

	h.log.Info().
		Str("agent_id", h.agentID).
		Int("gestures", len(gestures)).
		Int("keywords", len(derived)).
		Msg("loaded agent gestures")
}

// Trigger plays action unless it fired within the cooldown. A failed
// trigger does not start the cooldown.
func (h *Handler) Trigger(ctx context.Context, action string) error {
	action = strings.TrimSpace(action)
	now := h.now()

	h.mu.Lock()
	if last, ok := h.lastFired[action]; ok && now.Sub(last) < h.cooldown {
		h.mu.Unlock()
		h.log.Debug().Str("action", action).Msg("gesture on cooldown")
		return ErrOnCooldown
	}
	// reserve the slot so concurrent callers do not double fire
	h.lastFired[action] = now
	h.mu.Unlock()

	if err := h.trigger.TriggerGesture(ctx, action); err != nil {
		h.mu.Lock()
		if h.lastFired[action].Equal(now) {
			delete(h.lastFired, action)
		}
		h.mu.Unlock()
		h.log.Error().Err(err).Str("action", action).Msg("failed to trigger gesture")
		return err
	}
	h.log.Info().Str("action", action).Msg("gesture triggered")
	return nil
}

// CheckAndTrigger fires the gesture for the first keyword in text and
// returns it. It reports false when nothing matched or the gesture could
// not fire.
func (h *Handler) CheckAndTrigger(ctx context.Context, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	h.mu.Lock()
	keyword, action, ok := DetectAction(text, h.keywords)
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	h.log.Debug().Str("keyword", keyword).Str("action", action).Msg("gesture keyword detected")
	if err := h.Trigger(ctx, action); err != nil {
		return "", false
	}
	return action, true
}

// OnChat checks user chat messages for gesture keywords. Messages for another
// agent are ignored. Cooldown and relay failures are logged, not returned, so
// the webhook event is not retried into a late gesture.
func (h *Handler) OnChat(ctx context.Context, msg webhook.ChatMessage) error {
	if msg.Role != "" && !strings.EqualFold(msg.Role, "user") {
		return nil
	}
	if h.agentID != "" && msg.AgentID != "" && msg.AgentID != h.agentID {
		return nil
	}
	if action, ok := h.CheckAndTrigger(ctx, msg.Text); ok {
		h.log.Debug().Str("event_id", msg.EventID).Str("action", action).Msg("chat message triggered gesture")
	}
	return nil
}

// AddKeyword maps keyword (case-insensitive) to action.
func (h *Handler) AddKeyword(keyword, action string) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return
	}
	h.mu.Lock()
	h.keywords[keyword] = action
	h.mu.Unlock()
}

// RemoveKeyword drops keyword from the mapping.
func (h *Handler) RemoveKeyword(keyword string) {
	h.mu.Lock()
	delete(h.keywords, strings.ToLower(strings.TrimSpace(keyword)))
	h.mu.Unlock()
}

// SetCooldown changes the per-gesture cooldown.
func (h *Handler) SetCooldown(d time.Duration) {
	h.mu.Lock()
	h.cooldown = d
	h.mu.Unlock()
}

// ResetCooldowns lets every gesture fire again immediately.
func (h *Handler) ResetCooldowns() {
	h.mu.Lock()
	clear(h.lastFired)
	h.mu.Unlock()
}

// Keywords returns a copy of the keyword mapping.
func (h *Handler) Keywords() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.keywords))
	for k, v := range h.keywords {
		out[k] = v
	}
	return out
}

// Actions returns every known gesture name, sorted.
func (h *Handler) Actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := make(map[string]struct{}, len(h.keywords)+len(h.gestures))
	for _, action := range h.keywords {
		set[action] = struct{}{}
	}
	for name := range h.gestures {
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
