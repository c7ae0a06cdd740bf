package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog entry a variant belongs to. The checkout engine only
// reads products; catalog CRUD lives with the admin collaborator.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	Slug      string           `gorm:"column:slug;uniqueIndex;not null"`
	ImageURL  *string          `gorm:"column:image_url"`
	Active    bool             `gorm:"column:active;not null;default:true"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
