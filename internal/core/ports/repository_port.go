package ports

import (
	"context"

	"github.com/agricagent/agricagent/internal/core/domain"
)

// InteractionRepositoryPort defines the interface for the append-only
// interaction store. No update or delete path exists.
type InteractionRepositoryPort interface {
	// Save appends one interaction record and fills in its assigned ID.
	Save(ctx context.Context, interaction *domain.Interaction) error

	// ListRecent returns up to limit interactions, most recent first.
	ListRecent(ctx context.Context, limit int) ([]domain.Interaction, error)
}
