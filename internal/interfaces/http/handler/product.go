package handler

import (
	"context"

	catalogapp "github.com/blibbers/vibekit/internal/application/catalog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductUseCases is the catalog surface used by ProductHandler
type ProductUseCases interface {
	Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	ListActive(ctx context.Context) ([]catalogapp.ProductResponse, error)
}

// ProductHandler serves the public catalog and admin product creation
type ProductHandler struct {
	BaseHandler
	products ProductUseCases
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductUseCases) *ProductHandler {
	return &ProductHandler{products: products}
}

// List godoc
//
//	@ID				listProducts
//	@Summary		List active products
//	@Tags			products
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=[]catalog.ProductResponse}
//	@Router			/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.ListActive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Get returns a single product
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create godoc
//
//	@ID				createProduct
//	@Summary		Create a product
//	@Description	Paid products are created on the payment provider with a matching price
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		catalog.CreateProductRequest	true	"Product"
//	@Success		201		{object}	dto.Response{data=catalog.ProductResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		502		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}
