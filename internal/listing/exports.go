package listing

import (
	"sort"
	"strings"

	"marketplace-service/internal/models"
)

// ExportSortKey identifies one of the orderings the "my exports" page offers.
// The keys differ from the marketplace SortKey set because exporters care
// about inventory, not popularity.
type ExportSortKey string

const (
	ExportSortNewest      ExportSortKey = "newest"
	ExportSortPriceHigh   ExportSortKey = "price-high"
	ExportSortPriceLow    ExportSortKey = "price-low"
	ExportSortQuantityTop ExportSortKey = "quantity-high"
	ExportSortRatingTop   ExportSortKey = "rating-high"
)

// ValidExportSort reports whether k is an accepted export sort key.
// The empty key means newest, the page default.
func ValidExportSort(k ExportSortKey) bool {
	switch k {
	case "", ExportSortNewest, ExportSortPriceHigh, ExportSortPriceLow,
		ExportSortQuantityTop, ExportSortRatingTop:
		return true
	}
	return false
}

// SearchAny returns the products whose name, origin country or description
// contains term, case-insensitively. An empty term returns the input.
func SearchAny(products []models.Product, term string) []models.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return products
	}

	needle := strings.ToLower(term)
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.OriginCountry), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			matched = append(matched, p)
		}
	}
	return matched
}

// SortExports returns a new slice ordered by key, defaulting to newest.
func SortExports(products []models.Product, key ExportSortKey) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)

	var less func(a, b models.Product) bool
	switch key {
	case ExportSortPriceHigh:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case ExportSortPriceLow:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case ExportSortQuantityTop:
		less = func(a, b models.Product) bool { return a.AvailableQuantity > b.AvailableQuantity }
	case ExportSortRatingTop:
		less = func(a, b models.Product) bool { return a.Rating > b.Rating }
	default:
		less = func(a, b models.Product) bool { return a.ListedAt().After(b.ListedAt()) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}
