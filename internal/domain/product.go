package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the inventory record; Stock is the only availability figure the
// system trusts.
type Product struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Category    string          `json:"category" gorm:"size:100;index"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:decimal(12,2);not null;default:0"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Image       string          `json:"image" gorm:"size:512"`
	Gallery     []string        `json:"gallery" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CoverImage is the first gallery picture, falling back to the main image.
func (p *Product) CoverImage() string {
	if len(p.Gallery) > 0 {
		return p.Gallery[0]
	}
	return p.Image
}

// ClampStock floors a computed stock figure at zero.
func ClampStock(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
