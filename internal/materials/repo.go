package materials

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository reads the materials catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]Material, error)
	GetByID(ctx context.Context, id string) (*Material, error)
	GetDefault(ctx context.Context) (*Material, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed catalog repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, errors.New("db connection required")
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) ListActive(ctx context.Context) ([]Material, error) {
	var rows []Material
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("is_default DESC, display_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Material, error) {
	var row Material
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) GetDefault(ctx context.Context) (*Material, error) {
	var row Material
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("is_default DESC, display_name ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
