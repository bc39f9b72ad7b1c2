package listing

import (
	"sort"
	"strings"

	"marketplace-service/internal/models"
)

// SortKey identifies one of the orderings the listing pages offer.
type SortKey string

const (
	// SortNone leaves the collection in server/default order
	SortNone       SortKey = ""
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortRatingDesc SortKey = "rating_desc"
	SortRatingAsc  SortKey = "rating_asc"
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortPopular    SortKey = "popular"
)

// Valid reports whether k is an accepted sort key.
func Valid(k SortKey) bool {
	switch k {
	case SortNone, SortPriceAsc, SortPriceDesc, SortRatingDesc, SortRatingAsc,
		SortNewest, SortOldest, SortPopular:
		return true
	}
	return false
}

// Search returns the products whose name contains term, case-insensitively.
// An empty term returns the input unchanged.
func Search(products []models.Product, term string) []models.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return products
	}

	needle := strings.ToLower(term)
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Sort returns a new slice ordered by key. The sort is stable: products that
// compare equal keep their original relative order. SortNone copies the input
// as-is.
func Sort(products []models.Product, key SortKey) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)

	less := lessFunc(key)
	if less == nil {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b models.Product) bool {
	switch key {
	case SortPriceAsc:
		return func(a, b models.Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		return func(a, b models.Product) bool { return a.Price > b.Price }
	case SortRatingDesc:
		return func(a, b models.Product) bool { return a.Rating > b.Rating }
	case SortRatingAsc:
		return func(a, b models.Product) bool { return a.Rating < b.Rating }
	case SortNewest:
		// Missing dates are the zero time, so they sort to the end
		return func(a, b models.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		return func(a, b models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPopular:
		// Rating first, review count breaks ties
		return func(a, b models.Product) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.ReviewCount > b.ReviewCount
		}
	default:
		return nil
	}
}
