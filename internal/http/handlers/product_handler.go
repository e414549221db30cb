package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/farmlink/farmlink-backend/internal/http/handlers/common"
	"github.com/farmlink/farmlink-backend/internal/models"
)

// ProductCatalog — витрина каталога, только чтение.
type ProductCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.Product, error)
}

// ProductHandler отдаёт каталог товаров.
type ProductHandler struct {
	catalog ProductCatalog
}

// NewProductHandler создаёт обработчик каталога.
func NewProductHandler(catalog ProductCatalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List обрабатывает GET /api/products.
func (h *ProductHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	if farmerID := c.Query("farmer_id"); farmerID != "" {
		parsed, err := uuid.Parse(farmerID)
		if err != nil {
			common.RespondBadRequest(c, "farmer_id должен быть валидным UUID")
			return
		}
		products, err := h.catalog.ListByFarmer(c.Request.Context(), parsed)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	products, err := h.catalog.List(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// Get обрабатывает GET /api/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	product, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, product)
}
