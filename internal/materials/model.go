package materials

import "time"

// Material is a printable filament offered in the configurator.
type Material struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Name           string    `gorm:"size:128;not null" json:"name"`
	DisplayName    string    `gorm:"size:128;not null" json:"display_name"`
	Color          string    `gorm:"size:32" json:"color,omitempty"`
	CostPerKgCents int       `gorm:"not null" json:"cost_per_kg_cents"`
	DensityGcm3    float64   `gorm:"not null;default:1.24" json:"density_gcm3"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsDefault      bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName pins the table to match the migrations.
func (Material) TableName() string {
	return "materials"
}
