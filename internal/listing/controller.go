package listing

import (
	"context"
	"sync"

	"marketplace-service/internal/models"

	"go.uber.org/zap"
)

// PageFetcher is the slice of the marketplace client the paginated controller
// needs: one page at a time with server-side search and sort.
type PageFetcher interface {
	ListProductsPaginated(ctx context.Context, page, limit int, search, sort string) (models.PaginatedProducts, error)
}

// Controller holds the query state for a server-paginated product listing:
// search term, sort key and current page. Changing the search term or sort
// key resets to page 1; every change re-queries the remote collection.
//
// On a failed fetch the last successful page is kept and the error is
// returned to the caller.
type Controller struct {
	mu       sync.Mutex
	source   PageFetcher
	logger   *zap.Logger
	pageSize int

	searchTerm string
	sortKey    SortKey
	page       int

	items      []models.Product
	total      int
	totalPages int
}

// NewController creates a controller with an empty query on page 1.
// It performs no fetch until the first operation.
func NewController(source PageFetcher, pageSize int, logger *zap.Logger) *Controller {
	if pageSize < 1 {
		pageSize = 8
	}
	return &Controller{
		source:   source,
		logger:   logger,
		pageSize: pageSize,
		page:     1,
	}
}

// SetSearchTerm updates the search term, resets to page 1 and re-fetches.
func (c *Controller) SetSearchTerm(ctx context.Context, term string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searchTerm = term
	c.page = 1
	return c.fetchLocked(ctx)
}

// SetSortKey updates the sort key, resets to page 1 and re-fetches.
// Unknown keys are rejected without touching the current state.
func (c *Controller) SetSortKey(ctx context.Context, key SortKey) error {
	if !Valid(key) {
		return ErrInvalidSortKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sortKey = key
	c.page = 1
	return c.fetchLocked(ctx)
}

// GoToPage moves to page n and re-fetches. Out-of-range pages are a no-op.
func (c *Controller) GoToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 1 || (c.totalPages > 0 && n > c.totalPages) {
		return nil
	}

	c.page = n
	return c.fetchLocked(ctx)
}

// Apply sets the whole query in one step and fetches once. Used by the
// stateless HTTP surface, where search, sort and page arrive together in a
// single request.
func (c *Controller) Apply(ctx context.Context, term string, key SortKey, page int) error {
	if !Valid(key) {
		return ErrInvalidSortKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.searchTerm = term
	c.sortKey = key
	if page < 1 {
		page = 1
	}
	c.page = page
	return c.fetchLocked(ctx)
}

// Refresh re-queries the remote collection with the current parameters.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchLocked(ctx)
}

func (c *Controller) fetchLocked(ctx context.Context) error {
	result, err := c.source.ListProductsPaginated(ctx, c.page, c.pageSize, c.searchTerm, string(c.sortKey))
	if err != nil {
		// Keep the last successful page; the caller decides how to surface it
		c.logger.Warn("Listing fetch failed",
			zap.Int("page", c.page),
			zap.String("search", c.searchTerm),
			zap.String("sort", string(c.sortKey)),
			zap.Error(err),
		)
		return err
	}

	c.items = result.Products
	c.total = result.Total
	c.totalPages = (result.Total + c.pageSize - 1) / c.pageSize
	return nil
}

// Items returns the current page's products.
func (c *Controller) Items() []models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.Product, len(c.items))
	copy(items, c.items)
	return items
}

// State returns the current query parameters and pagination metadata.
func (c *Controller) State() (searchTerm string, sortKey SortKey, page, pageSize, total, totalPages int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchTerm, c.sortKey, c.page, c.pageSize, c.total, c.totalPages
}

// PageNumbers returns the windowed page-number control for the current state.
func (c *Controller) PageNumbers() []PageRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PageNumbers(c.page, c.totalPages)
}
