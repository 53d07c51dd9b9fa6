package handler

import (
	"errors"
	"net/http"
	"testing"

	catalogapp "github.com/blibbers/vibekit/internal/application/catalog"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func productEngine(products *MockProducts) *gin.Engine {
	h := NewProductHandler(products)
	engine := newEngine(nil)
	engine.GET("/products", h.List)
	engine.GET("/products/:id", h.Get)
	engine.POST("/admin/products", h.Create)
	return engine
}

func TestProductList(t *testing.T) {
	products := new(MockProducts)
	products.On("ListActive", mock.Anything).Return([]catalogapp.ProductResponse{
		{ID: uuid.New(), Name: "Free", IsFree: true},
		{ID: uuid.New(), Name: "Pro", ExternalPriceID: "price_pro"},
	}, nil)

	w := doJSON(productEngine(products), http.MethodGet, "/products", nil)

	var list []catalogapp.ProductResponse
	decodeData(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "price_pro", list[1].ExternalPriceID)
}

func TestProductGet_NotFound(t *testing.T) {
	id := uuid.New()
	products := new(MockProducts)
	products.On("GetByID", mock.Anything, id).Return(nil, shared.NewDomainError("NOT_FOUND", "Product not found"))

	w := doJSON(productEngine(products), http.MethodGet, "/products/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductCreate(t *testing.T) {
	products := new(MockProducts)
	products.On("Create", mock.Anything, mock.MatchedBy(func(req catalogapp.CreateProductRequest) bool {
		return req.Name == "Pro" && req.BillingType == "recurring" && req.Price.Equal(decimal.NewFromInt(20))
	})).Return(&catalogapp.ProductResponse{ID: uuid.New(), Name: "Pro", ExternalPriceID: "price_1"}, nil)

	w := doJSON(productEngine(products), http.MethodPost, "/admin/products",
		`{"name":"Pro","price":"20","billingType":"recurring","billingInterval":"month"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp catalogapp.ProductResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "price_1", resp.ExternalPriceID)
}

func TestProductCreate_DomainValidation(t *testing.T) {
	products := new(MockProducts)
	products.On("Create", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative"))

	w := doJSON(productEngine(products), http.MethodPost, "/admin/products", `{"name":"Bad","price":"-1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PRICE", decode(t, w).Error.Code)
}

func TestProductCreate_UnexpectedError(t *testing.T) {
	products := new(MockProducts)
	products.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	w := doJSON(productEngine(products), http.MethodPost, "/admin/products", `{"name":"Pro","price":"5"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, dto.ErrCodeInternal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "connection reset")
}
