package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farmlink/farmlink-backend/internal/models"
	"github.com/farmlink/farmlink-backend/internal/repository/common"
)

// ErrProductNotFound возвращается, когда товар не найден.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository даёт доступ к каталогу только на чтение: ядру переговоров
// от каталога нужна связь product -> farmer, фронтенду — витрина.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository создаёт новый экземпляр.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID возвращает товар по идентификатору.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return common.GetByID[models.Product](ctx, r.db, "products", id, ErrProductNotFound)
}

// List возвращает товары каталога с пагинацией.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	query := `SELECT * FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &products, query, limit, offset); err != nil {
		return nil, fmt.Errorf("product repository: list %w", err)
	}
	return products, nil
}

// ListByFarmer возвращает товары конкретного фермера.
func (r *ProductRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	query := `SELECT * FROM products WHERE farmer_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &products, query, farmerID); err != nil {
		return nil, fmt.Errorf("product repository: list by farmer %w", err)
	}
	return products, nil
}
