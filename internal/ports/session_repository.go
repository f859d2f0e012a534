package ports

import (
	"context"

	"github.com/bnema/ambient-narrator/internal/domain"
)

type SessionRepository interface {
	Load(ctx context.Context, conversationID string) (domain.PersistedAwareness, error)
	Save(ctx context.Context, awareness domain.PersistedAwareness) error
}

// NopSessionRepository never finds anything and never stores anything.
type NopSessionRepository struct{}

func (NopSessionRepository) Load(context.Context, string) (domain.PersistedAwareness, error) {
	return domain.PersistedAwareness{}, domain.ErrSessionNotFound
}

func (NopSessionRepository) Save(context.Context, domain.PersistedAwareness) error {
	return nil
}

// SessionCatalog is implemented by stores that can enumerate what they hold.
type SessionCatalog interface {
	List(ctx context.Context) ([]domain.PersistedAwareness, error)
}
