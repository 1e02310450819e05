package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/shopcard/internal/domain"
)

func TestParseCatalog(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		products int
		family   string
	}{
		{
			name:     "plain object",
			answer:   `{"product_family": "Pumps", "category": "Industrial", "products": [{"name": "XR-200"}]}`,
			products: 1,
			family:   "Pumps",
		},
		{
			name:     "fenced",
			answer:   "```json\n{\"products\": [{\"name\": \"A\"}, {\"name\": \"B\"}]}\n```",
			products: 2,
			family:   "Product Catalog",
		},
		{
			name:     "prose around object",
			answer:   "Here is the catalog:\n{\"products\": []}\nLet me know if you need more.",
			products: 0,
			family:   "Product Catalog",
		},
		{
			name:     "trailing commas",
			answer:   `{"products": [{"name": "A", "features": ["x", "y",],},],}`,
			products: 1,
			family:   "Product Catalog",
		},
		{
			name:     "nulls",
			answer:   `{"product_family": null, "company": null, "products": [{"name": "A", "features": null, "specifications": null, "pricing": null}]}`,
			products: 1,
			family:   "Product Catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCatalog(tt.answer)
			require.NoError(t, err)
			assert.Len(t, c.Products, tt.products)
			assert.Equal(t, tt.family, c.ProductFamily)
		})
	}
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"empty", ""},
		{"not json", "I could not read the catalog"},
		{"missing products", `{"product_family": "Pumps"}`},
		{"products not array", `{"products": "none"}`},
		{"feature not string", `{"products": [{"name": "A", "features": [1, 2]}]}`},
		{"negative image count", `{"products": [{"name": "A", "images_count": -1}]}`},
		{"company is string", `{"company": "Acme", "products": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(tt.answer)
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeProvider), "got %v", err)
		})
	}
}

func TestParseCatalog_Specifications(t *testing.T) {
	c, err := ParseCatalog(`{"products": [{"name": "A", "specifications": {"Power": "2 kW", "Size": {"Width": 40, "Height": "80 cm"}}}]}`)
	require.NoError(t, err)

	specs := c.Products[0].Specifications
	require.Len(t, specs, 2)
	assert.Equal(t, domain.GeneralCategory, specs[0].Category)
	v, ok := specs.Lookup("Size", "Width")
	assert.True(t, ok)
	assert.Equal(t, "40", v)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}  "))
}
