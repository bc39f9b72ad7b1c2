package listing

import (
	"context"
	"sync"

	"marketplace-service/internal/models"
	"marketplace-service/pkg/errors"

	"go.uber.org/zap"
)

// ErrInvalidSortKey is returned when an unknown sort key is requested.
var ErrInvalidSortKey = errors.NewValidationError("invalid sort key", "sort")

// CollectionFetcher is the slice of the marketplace client the local
// controller needs: the full collection in one call.
type CollectionFetcher interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// LocalController is the client-side listing variant used when the remote
// collection has no server-side pagination: it fetches the whole collection
// once and applies search, sort and pagination locally. Search and sort
// changes recompute the view without another network round trip.
//
// Like Controller, a failed fetch keeps the previously loaded collection.
type LocalController struct {
	mu       sync.Mutex
	source   CollectionFetcher
	logger   *zap.Logger
	pageSize int

	all    []models.Product
	loaded bool

	searchTerm string
	sortKey    SortKey
	page       int
}

// NewLocalController creates a local controller with an empty query on page 1.
func NewLocalController(source CollectionFetcher, pageSize int, logger *zap.Logger) *LocalController {
	if pageSize < 1 {
		pageSize = 8
	}
	return &LocalController{
		source:   source,
		logger:   logger,
		pageSize: pageSize,
		page:     1,
	}
}

// Load fetches the full collection. On failure the previously loaded
// collection stays in place and the error is returned.
func (c *LocalController) Load(ctx context.Context) error {
	products, err := c.source.ListProducts(ctx)
	if err != nil {
		c.logger.Warn("Collection fetch failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = products
	c.loaded = true
	return nil
}

// SetSearchTerm updates the search term and resets to page 1.
func (c *LocalController) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchTerm = term
	c.page = 1
}

// SetSortKey updates the sort key and resets to page 1.
func (c *LocalController) SetSortKey(key SortKey) error {
	if !Valid(key) {
		return ErrInvalidSortKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sortKey = key
	c.page = 1
	return nil
}

// GoToPage moves to page n. Out-of-range pages are a no-op.
func (c *LocalController) GoToPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 1 || n > c.totalPagesLocked() {
		return
	}
	c.page = n
}

// View returns the current page of the filtered, sorted collection together
// with the match count and pagination metadata.
func (c *LocalController) View() ([]models.Product, int, int, []PageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := Sort(Search(c.all, c.searchTerm), c.sortKey)
	total := len(filtered)
	totalPages := (total + c.pageSize - 1) / c.pageSize

	page := c.page
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * c.pageSize
	if start < 0 || start >= total {
		return []models.Product{}, total, totalPages, PageNumbers(page, totalPages)
	}
	end := start + c.pageSize
	if end > total {
		end = total
	}

	items := make([]models.Product, end-start)
	copy(items, filtered[start:end])
	return items, total, totalPages, PageNumbers(page, totalPages)
}

// State returns the current query parameters.
func (c *LocalController) State() (searchTerm string, sortKey SortKey, page, pageSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchTerm, c.sortKey, c.page, c.pageSize
}

// Loaded reports whether the collection has been fetched at least once.
func (c *LocalController) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *LocalController) totalPagesLocked() int {
	filtered := Search(c.all, c.searchTerm)
	return (len(filtered) + c.pageSize - 1) / c.pageSize
}
