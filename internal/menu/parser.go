// Package menu provides parsing and validation for YAML menu documents used
// by the admin menu import.
package menu

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Document struct {
	Categories []CategoryConfig `yaml:"categories"`
}

type CategoryConfig struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Products    []ProductConfig `yaml:"products"`
}

type ProductConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	BasePrice   float64           `yaml:"base_price"`
	ImageURL    string            `yaml:"image_url"`
	Active      *bool             `yaml:"active"`
	Variations  []VariationConfig `yaml:"variations"`
}

type VariationConfig struct {
	Type          string  `yaml:"type"`
	Name          string  `yaml:"name"`
	PriceModifier float64 `yaml:"price_modifier"`
}

// IsActive defaults to true when the document omits the flag.
func (p *ProductConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &doc, nil
}
