package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/domain"
	"github.com/soukly/platform/internal/events"
	"github.com/soukly/platform/internal/repository"
)

type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// CatalogService owns product listings. Writes are restricted to the listing
// owner; reads are public.
type CatalogService struct {
	products  repository.ProductRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewCatalogService(products repository.ProductRepository, publisher events.Publisher, logger *slog.Logger) *CatalogService {
	return &CatalogService{products: products, publisher: publisher, logger: logger}
}

func (s *CatalogService) Create(ctx context.Context, sellerID uint, in ProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		SellerID:    sellerID,
	}
	if err := s.products.Create(product); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not create product", err)
	}

	if err := s.publisher.Publish(ctx, events.TypeProductCreated, product.Name, map[string]any{
		"product_id": product.ID,
		"seller_id":  sellerID,
	}); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"type", events.TypeProductCreated, "error", err)
	}
	return product, nil
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*domain.Product, error) {
	product, err := s.products.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "product not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "could not load product", err)
	}
	return product, nil
}

func (s *CatalogService) List(ctx context.Context, req repository.PageRequest) (repository.PageResult[domain.Product], error) {
	result, err := s.products.ListPaged(req)
	if err != nil {
		return repository.PageResult[domain.Product]{}, apperr.Wrap(apperr.KindInternal, "could not list products", err)
	}
	return result, nil
}

func (s *CatalogService) Update(ctx context.Context, sellerID, id uint, in ProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.SellerID != sellerID {
		// A 404 here would confirm the listing exists to a non-owner.
		return nil, apperr.New(apperr.KindAuth, "not allowed to modify this product")
	}

	updates := map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"price":       in.Price,
	}
	if err := s.products.Update(id, updates); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "product not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "could not update product", err)
	}
	return s.Get(ctx, id)
}

func (s *CatalogService) Delete(ctx context.Context, sellerID, id uint) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.SellerID != sellerID {
		return apperr.New(apperr.KindAuth, "not allowed to modify this product")
	}
	if err := s.products.DeleteByID(id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not delete product", err)
	}
	return nil
}

func validateProductInput(in ProductInput) error {
	details := map[string]string{}
	if n := utf8.RuneCountInString(in.Name); n < 3 || n > 120 {
		details["name"] = "must be between 3 and 120 characters"
	}
	if utf8.RuneCountInString(in.Description) > 500 {
		details["description"] = "must be at most 500 characters"
	}
	if in.Price <= 0 {
		details["price"] = "must be greater than zero"
	}
	if len(details) > 0 {
		return apperr.New(apperr.KindValidation, "invalid product input").WithDetails(details)
	}
	return nil
}
