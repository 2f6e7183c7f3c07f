// Package profile resolves safety profiles by id.
package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Provider looks up profiles. A missing profile is domain.ErrProfileNotFound.
type Provider interface {
	GetProfile(ctx context.Context, id string) (domain.SafetyProfile, error)
}

// Static serves profiles held in memory, typically from the config file.
type Static struct {
	mu       sync.RWMutex
	profiles map[string]domain.SafetyProfile
}

var _ Provider = (*Static)(nil)

// NewStatic validates and indexes profiles by id.
func NewStatic(profiles []domain.SafetyProfile) (*Static, error) {
	s := &Static{profiles: make(map[string]domain.SafetyProfile, len(profiles))}
	for _, p := range profiles {
		if err := s.Put(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// GetProfile implements Provider.
func (s *Static) GetProfile(ctx context.Context, id string) (domain.SafetyProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.SafetyProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.SafetyProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
	}
	return p, nil
}

// Put adds or replaces a profile.
func (s *Static) Put(p domain.SafetyProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ProfileID] = p
	return nil
}

// Chain asks each provider in turn, moving on only when a provider does
// not know the profile.
type Chain []Provider

// GetProfile implements Provider.
func (c Chain) GetProfile(ctx context.Context, id string) (domain.SafetyProfile, error) {
	for _, p := range c {
		prof, err := p.GetProfile(ctx, id)
		if err == nil {
			return prof, nil
		}
		if !isNotFound(err) {
			return domain.SafetyProfile{}, err
		}
	}
	return domain.SafetyProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
}
