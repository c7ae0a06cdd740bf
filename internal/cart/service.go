package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

// Service exposes the read-only cart preview.
type Service interface {
	Preview(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
}

type service struct {
	repo Repository
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// Preview returns the current snapshot without locking any rows. An empty
// cart yields a snapshot with no lines rather than an error so the storefront
// can render an empty state.
func (s *service) Preview(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return BuildSnapshot(ctx, s.repo, userID, false)
}
