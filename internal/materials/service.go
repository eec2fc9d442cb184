// Package materials serves the filament catalog backing the
// configurator, including the display names sent to pricing and
// checkout.
package materials

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
)

const cacheTTL = 5 * time.Minute

// Service is the catalog read surface.
type Service interface {
	List(ctx context.Context) ([]Material, error)
	Get(ctx context.Context, id string) (*Material, error)
	Default(ctx context.Context) (*Material, error)
	DisplayName(ctx context.Context, materialID string) (string, error)
}

type service struct {
	repo Repository

	mu       sync.Mutex
	cached   []Material
	cachedAt time.Time
}

// NewService builds the catalog service with a short read-through cache;
// the catalog changes rarely but is consulted on every quote.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]Material, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.cachedAt) < cacheTTL {
		rows := append([]Material(nil), s.cached...)
		s.mu.Unlock()
		return rows, nil
	}
	s.mu.Unlock()

	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list materials")
	}

	s.mu.Lock()
	s.cached = append([]Material(nil), rows...)
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return rows, nil
}

func (s *service) Get(ctx context.Context, id string) (*Material, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ID == id {
			row := rows[i]
			return &row, nil
		}
	}
	// The cache only holds active rows; fall through for inactive ids.
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get material")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found").
			WithDetails(map[string]any{"material_id": id})
	}
	return row, nil
}

func (s *service) Default(ctx context.Context) (*Material, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "materials catalog is empty")
	}
	row := rows[0]
	return &row, nil
}

// DisplayName resolves the name quoted and printed on invoices.
func (s *service) DisplayName(ctx context.Context, materialID string) (string, error) {
	row, err := s.Get(ctx, materialID)
	if err != nil {
		return "", err
	}
	return row.DisplayName, nil
}
