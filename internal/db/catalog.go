package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogStore persists the per-tenant menu: categories, products and their
// configuration variations.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// ListMenu returns the tenant's categories with active products and their
// variations, ordered for display.
func (s *CatalogStore) ListMenu(ctx context.Context, tenantID uuid.UUID) ([]Category, error) {
	categories, err := s.listCategories(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}

	products, err := s.listProducts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[uuid.UUID][]Product, len(categories))
	for _, product := range products {
		byCategory[product.CategoryID] = append(byCategory[product.CategoryID], product)
	}
	for i := range categories {
		categories[i].Products = byCategory[categories[i].ID]
	}
	return categories, nil
}

func (s *CatalogStore) listCategories(ctx context.Context, tenantID uuid.UUID) ([]Category, error) {
	query := `SELECT id, tenant_id, name, description, display_order
		FROM categories WHERE tenant_id = $1 ORDER BY display_order, name`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var (
			category    Category
			description pgtype.Text
		)
		if err := rows.Scan(&category.ID, &category.TenantID, &category.Name, &description, &category.DisplayOrder); err != nil {
			return nil, err
		}
		if description.Valid {
			category.Description = description.String
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *CatalogStore) listProducts(ctx context.Context, tenantID uuid.UUID) ([]Product, error) {
	query := `SELECT id, tenant_id, category_id, name, description, base_price, image_url, active, created_at
		FROM products WHERE tenant_id = $1 AND active ORDER BY name`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			product     Product
			description pgtype.Text
			imageURL    pgtype.Text
		)
		if err := rows.Scan(&product.ID, &product.TenantID, &product.CategoryID, &product.Name,
			&description, &product.BasePrice, &imageURL, &product.Active, &product.CreatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			product.Description = description.String
		}
		if imageURL.Valid {
			product.ImageURL = imageURL.String
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(products) == 0 {
		return nil, nil
	}

	variations, err := s.listVariations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID][]ProductVariation)
	for _, variation := range variations {
		byProduct[variation.ProductID] = append(byProduct[variation.ProductID], variation)
	}
	for i := range products {
		products[i].Variations = byProduct[products[i].ID]
	}
	return products, nil
}

func (s *CatalogStore) listVariations(ctx context.Context, tenantID uuid.UUID) ([]ProductVariation, error) {
	query := `SELECT v.id, v.product_id, v.variation_type, v.name, v.price_modifier
		FROM product_variations v
		JOIN products p ON p.id = v.product_id
		WHERE p.tenant_id = $1
		ORDER BY v.variation_type, v.name`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product variations: %w", err)
	}
	defer rows.Close()

	var variations []ProductVariation
	for rows.Next() {
		var variation ProductVariation
		if err := rows.Scan(&variation.ID, &variation.ProductID, &variation.VariationType,
			&variation.Name, &variation.PriceModifier); err != nil {
			return nil, err
		}
		variations = append(variations, variation)
	}
	return variations, rows.Err()
}

// ReplaceMenu swaps the tenant's entire menu inside one transaction. Used by
// the YAML menu import; orders keep their item snapshots so history survives
// a replace.
func (s *CatalogStore) ReplaceMenu(ctx context.Context, tenantID uuid.UUID, categories []Category) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM product_variations WHERE product_id IN (SELECT id FROM products WHERE tenant_id = $1)`,
		tenantID); err != nil {
		return fmt.Errorf("failed to clear variations: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	for order, category := range categories {
		var categoryID uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO categories (tenant_id, name, description, display_order)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			tenantID, category.Name, textOrNull(category.Description), order,
		).Scan(&categoryID)
		if err != nil {
			return fmt.Errorf("failed to insert category %q: %w", category.Name, err)
		}

		for _, product := range category.Products {
			var productID uuid.UUID
			err := tx.QueryRow(ctx,
				`INSERT INTO products (tenant_id, category_id, name, description, base_price, image_url, active)
				 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
				tenantID, categoryID, product.Name, textOrNull(product.Description),
				product.BasePrice, textOrNull(product.ImageURL), product.Active,
			).Scan(&productID)
			if err != nil {
				return fmt.Errorf("failed to insert product %q: %w", product.Name, err)
			}

			for _, variation := range product.Variations {
				if _, err := tx.Exec(ctx,
					`INSERT INTO product_variations (product_id, variation_type, name, price_modifier)
					 VALUES ($1, $2, $3, $4)`,
					productID, variation.VariationType, variation.Name, variation.PriceModifier,
				); err != nil {
					return fmt.Errorf("failed to insert variation %q: %w", variation.Name, err)
				}
			}
		}
	}

	return tx.Commit(ctx)
}
