package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	extractx "github.com/tanpawarit/civic-chat/agent/extract"
	promptx "github.com/tanpawarit/civic-chat/agent/prompt"
)

const providerName = "profile"

// Provider remembers facts about each user across turns. It reads the
// profile into the handler context before a turn and harvests new facts from
// the user's utterance after it.
type Provider struct {
	store     contractx.StorageGateway
	extractor contractx.Extractor
	prompt    string
	now       func() time.Time

	mu       sync.Mutex
	profiles map[string]*UserProfile
}

var _ contractx.ContextProvider = (*Provider)(nil)

type Option func(*Provider)

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

func WithPrompt(prompt string) Option {
	return func(p *Provider) {
		if s := strings.TrimSpace(prompt); s != "" {
			p.prompt = s
		}
	}
}

func NewProvider(store contractx.StorageGateway, extractor contractx.Extractor, opts ...Option) (*Provider, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	if extractor == nil {
		return nil, errors.New("profile extractor is required")
	}
	prompt, err := promptx.Lookup(promptx.ProfileExtract)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		store:     store,
		extractor: extractor,
		prompt:    prompt,
		now:       time.Now,
		profiles:  make(map[string]*UserProfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

// load returns the cached profile, reading it from storage on first access.
// The caller must hold p.mu.
func (p *Provider) load(ctx context.Context, userID string) (*UserProfile, error) {
	if prof, ok := p.profiles[userID]; ok {
		return prof, nil
	}

	prof := New(userID)
	err := p.store.Get(ctx, Container, userID, prof)
	switch {
	case err == nil:
		prof.UserID = userID
	case errors.Is(err, contractx.ErrNotFound):
		prof = New(userID)
	default:
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	p.profiles[userID] = prof
	return prof, nil
}

func (p *Provider) BeforeTurn(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prof, err := p.load(ctx, userID)
	if err != nil {
		return "", err
	}
	return prof.Format(), nil
}

// AfterTurn never fails because of extraction or persistence; those errors
// are logged and the turn moves on.
func (p *Provider) AfterTurn(ctx context.Context, userID string, utterance string, _ string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}
	if extractx.ShouldSkip(utterance) {
		return nil
	}

	p.mu.Lock()
	prof, err := p.load(ctx, userID)
	var current []byte
	if err == nil && prof.Known() {
		current, _ = json.Marshal(prof)
	}
	p.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("profile load failed; skipping extraction")
		return nil
	}

	prompt := p.prompt
	if len(current) > 0 {
		prompt += "\n\nCurrent profile: " + string(current)
	}
	raw, err := p.extractor.Extract(ctx, prompt, utterance)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("profile extraction failed")
		return nil
	}
	obj, err := extractx.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("profile extraction ignored")
		return nil
	}

	p.mu.Lock()
	changed := prof.Merge(obj, p.now())
	snapshot := prof.Clone()
	p.mu.Unlock()
	if !changed {
		return nil
	}

	if _, err := p.store.Put(ctx, Container, userID, snapshot); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("profile persist failed")
		return nil
	}
	log.Debug().Str("user_id", userID).Msg("profile updated")
	return nil
}

// Profile returns a copy of the user's current profile.
func (p *Provider) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prof, err := p.load(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	return prof.Clone(), nil
}

// Clear drops every remembered fact for the user and persists the empty
// profile.
func (p *Provider) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}

	p.mu.Lock()
	prof := New(userID)
	ts := p.now().UTC().Truncate(time.Second)
	prof.LastUpdated = &ts
	p.profiles[userID] = prof
	snapshot := prof.Clone()
	p.mu.Unlock()

	if _, err := p.store.Put(ctx, Container, userID, snapshot); err != nil {
		return fmt.Errorf("%w: clear profile %s: %v", contractx.ErrPersistence, userID, err)
	}
	return nil
}
