package menu

import (
	"fmt"
	"strings"
)

var validVariationTypes = map[string]struct{}{
	"size":    {},
	"border":  {},
	"dough":   {},
	"extra":   {},
	"topping": {},
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(doc *Document) error {
	if doc == nil || len(doc.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}

	categoryNames := make(map[string]bool)
	for i, category := range doc.Categories {
		if err := v.validateCategory(&category); err != nil {
			return fmt.Errorf("category %d validation failed: %w", i, err)
		}
		name := strings.ToLower(strings.TrimSpace(category.Name))
		if categoryNames[name] {
			return fmt.Errorf("duplicate category: %s", category.Name)
		}
		categoryNames[name] = true
	}

	return nil
}

func (v *Validator) validateCategory(category *CategoryConfig) error {
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("category name is required")
	}

	if len(category.Products) == 0 {
		return fmt.Errorf("category %q has no products", category.Name)
	}

	productNames := make(map[string]bool)
	for i, product := range category.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}
		name := strings.ToLower(strings.TrimSpace(product.Name))
		if productNames[name] {
			return fmt.Errorf("duplicate product in %q: %s", category.Name, product.Name)
		}
		productNames[name] = true
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductConfig) error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if product.BasePrice <= 0 {
		return fmt.Errorf("product %q must have a positive base price", product.Name)
	}

	for _, variation := range product.Variations {
		if strings.TrimSpace(variation.Name) == "" {
			return fmt.Errorf("product %q has a variation without a name", product.Name)
		}
		if _, ok := validVariationTypes[variation.Type]; !ok {
			return fmt.Errorf("product %q has unknown variation type %q", product.Name, variation.Type)
		}
		if product.BasePrice+variation.PriceModifier < 0 {
			return fmt.Errorf("variation %q on %q drives the price below zero", variation.Name, product.Name)
		}
	}

	return nil
}
