package catalog

import (
	"context"
	"fmt"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService manages the catalog and mirrors sellable products to the billing provider
type ProductService struct {
	productRepo     catalog.ProductRepository
	gateway         domainBilling.Gateway
	defaultCurrency string
	logger          *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	gateway domainBilling.Gateway,
	defaultCurrency string,
	logger *zap.Logger,
) *ProductService {
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &ProductService{
		productRepo:     productRepo,
		gateway:         gateway,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// Create validates and stores a product. Paid products are created on the
// provider first so the stored row always carries a usable price id.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	var (
		product *catalog.Product
		err     error
	)
	if catalog.BillingType(req.BillingType) == catalog.BillingTypeRecurring {
		product, err = catalog.NewRecurringProduct(req.Name, req.Description, req.Price, currency,
			catalog.BillingInterval(req.BillingInterval), req.BillingIntervalCount)
	} else {
		product, err = catalog.NewProduct(req.Name, req.Description, req.Price, currency)
	}
	if err != nil {
		return nil, err
	}

	if product.NeedsProviderPrice() {
		if err := s.mirrorToProvider(ctx, product); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("price_id", product.ExternalPriceID),
		zap.String("billing_type", string(product.BillingType)),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) mirrorToProvider(ctx context.Context, product *catalog.Product) error {
	providerProductID, err := s.gateway.CreateProduct(ctx, product.Name, product.Description)
	if err != nil {
		return err
	}

	input := domainBilling.PriceInput{
		ProductID:  providerProductID,
		UnitAmount: product.UnitAmount(),
		Currency:   product.Currency,
	}
	if product.IsRecurring() {
		input.Recurring = true
		input.Interval = string(product.BillingInterval)
		input.IntervalCount = int64(product.BillingIntervalCount)
	}

	priceID, err := s.gateway.CreatePrice(ctx, input)
	if err != nil {
		return err
	}
	product.LinkProviderPrice(providerProductID, priceID)
	return nil
}

// GetByID returns a single product
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListActive returns active products, cheapest first
func (s *ProductService) ListActive(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}
