package models

import (
	"time"

	"github.com/google/uuid"
)

// Product описывает товар фермера. Каталог для ядра переговоров нужен
// только как источник связи product -> farmer.
type Product struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FarmerID    uuid.UUID `db:"farmer_id" json:"farmer_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	Unit        string    `db:"unit" json:"unit"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
