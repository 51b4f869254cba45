// Package roles enumerates the roles a member may submit a leave request under.
package roles

import (
	"context"
	"strings"
	"sync"

	"github.com/Proton-105/leave-bot/internal/domain"
	"github.com/Proton-105/leave-bot/pkg/config"
)

// EveryoneRoleID is the implicit role every member holds. It is never offered for selection.
const EveryoneRoleID = "@everyone"

// Provider returns the roles userID currently holds. An empty result is not an error.
type Provider interface {
	AssignableRoles(ctx context.Context, userID string) ([]domain.Role, error)
}

// StaticProvider serves roles from configuration. Members without an explicit entry get the default list.
type StaticProvider struct {
	mu       sync.RWMutex
	defaults []domain.Role
	members  map[string][]domain.Role
}

func NewStaticProvider(cfg config.RolesConfig) *StaticProvider {
	p := &StaticProvider{}
	p.Update(cfg)
	return p
}

// Update swaps the configured roles. Safe to call while requests are in flight.
func (p *StaticProvider) Update(cfg config.RolesConfig) {
	members := make(map[string][]domain.Role, len(cfg.Members))
	for userID, entries := range cfg.Members {
		members[userID] = fromEntries(entries)
	}
	defaults := fromEntries(cfg.Default)

	p.mu.Lock()
	p.defaults = defaults
	p.members = members
	p.mu.Unlock()
}

func (p *StaticProvider) AssignableRoles(_ context.Context, userID string) ([]domain.Role, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	roles, ok := p.members[userID]
	if !ok {
		roles = p.defaults
	}

	out := make([]domain.Role, len(roles))
	copy(out, roles)
	return out, nil
}

func fromEntries(entries []config.RoleEntry) []domain.Role {
	roles := make([]domain.Role, 0, len(entries))
	for _, entry := range entries {
		roles = appendAssignable(roles, domain.Role{ID: entry.ID, Label: entry.Label})
	}
	return roles
}

func appendAssignable(roles []domain.Role, role domain.Role) []domain.Role {
	role.ID = strings.TrimSpace(role.ID)
	if role.ID == "" || role.ID == EveryoneRoleID {
		return roles
	}
	if strings.TrimSpace(role.Label) == "" {
		role.Label = role.ID
	}
	return append(roles, role)
}
