package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fornadaapp/fornada/internal/db"
	"github.com/fornadaapp/fornada/internal/logging"
	"github.com/fornadaapp/fornada/internal/menu"
)

type menuParser interface {
	Parse(content []byte) (*menu.Document, error)
}

type menuValidator interface {
	Validate(doc *menu.Document) error
}

// MenuService serves the storefront menu and lets merchants replace it from
// a YAML document.
type MenuService struct {
	catalog   *db.CatalogStore
	parser    menuParser
	validator menuValidator
	logger    *slog.Logger
}

func NewMenuService(catalog *db.CatalogStore, parser menuParser, validator menuValidator, logger *slog.Logger) *MenuService {
	return &MenuService{
		catalog:   catalog,
		parser:    parser,
		validator: validator,
		logger:    logger,
	}
}

// GetMenu returns the tenant's categories with active products and their
// variations, in display order.
func (s *MenuService) GetMenu(ctx context.Context, tenantID uuid.UUID) ([]db.Category, error) {
	return s.catalog.ListMenu(ctx, tenantID)
}

// ImportMenu validates a YAML menu document and replaces the tenant's
// catalog with it in one transaction.
func (s *MenuService) ImportMenu(ctx context.Context, tenantID uuid.UUID, content []byte) error {
	doc, err := s.parser.Parse(content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	if err := s.validator.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	categories := make([]db.Category, 0, len(doc.Categories))
	for order, categoryConfig := range doc.Categories {
		category := db.Category{
			TenantID:     tenantID,
			Name:         categoryConfig.Name,
			Description:  categoryConfig.Description,
			DisplayOrder: order,
		}
		for _, productConfig := range categoryConfig.Products {
			product := db.Product{
				TenantID:    tenantID,
				Name:        productConfig.Name,
				Description: productConfig.Description,
				BasePrice:   productConfig.BasePrice,
				ImageURL:    productConfig.ImageURL,
				Active:      productConfig.IsActive(),
			}
			for _, variationConfig := range productConfig.Variations {
				product.Variations = append(product.Variations, db.ProductVariation{
					VariationType: variationConfig.Type,
					Name:          variationConfig.Name,
					PriceModifier: variationConfig.PriceModifier,
				})
			}
			category.Products = append(category.Products, product)
		}
		categories = append(categories, category)
	}

	if err := s.catalog.ReplaceMenu(ctx, tenantID, categories); err != nil {
		return fmt.Errorf("failed to replace menu: %w", err)
	}

	logging.FromContext(ctx, s.logger).Info("menu imported",
		"tenant_id", tenantID, "categories", len(categories))
	return nil
}
