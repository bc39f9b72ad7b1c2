package listing

import (
	"context"
	"fmt"
	"testing"

	"marketplace-service/internal/models"
	"marketplace-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePageFetcher serves pages of a fixed collection and can be told to fail.
type fakePageFetcher struct {
	products []models.Product
	fail     bool
	calls    int

	lastSearch string
	lastSort   string
	lastPage   int
}

func (f *fakePageFetcher) ListProductsPaginated(_ context.Context, page, limit int, search, sort string) (models.PaginatedProducts, error) {
	f.calls++
	if f.fail {
		return models.PaginatedProducts{}, errors.NewNetworkError("GET /products/paginated", fmt.Errorf("connection refused"))
	}

	f.lastSearch = search
	f.lastSort = sort
	f.lastPage = page

	matched := Search(f.products, search)
	start := (page - 1) * limit
	end := start + limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return models.PaginatedProducts{Products: matched[start:end], Total: len(matched)}, nil
}

func manyProducts(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{ID: fmt.Sprintf("p%02d", i), Name: fmt.Sprintf("Product %02d", i)}
	}
	return products
}

func TestController_SearchResetsToPageOne(t *testing.T) {
	fetcher := &fakePageFetcher{products: manyProducts(20)}
	ctrl := NewController(fetcher, 8, zap.NewNop())

	require.NoError(t, ctrl.GoToPage(context.Background(), 2))
	_, _, page, _, _, _ := ctrl.State()
	assert.Equal(t, 2, page)

	require.NoError(t, ctrl.SetSearchTerm(context.Background(), "Product 1"))
	searchTerm, _, page, _, total, totalPages := ctrl.State()
	assert.Equal(t, "Product 1", searchTerm)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, total) // Product 10..19
	assert.Equal(t, 2, totalPages)
}

func TestController_SortResetsToPageOne(t *testing.T) {
	fetcher := &fakePageFetcher{products: manyProducts(20)}
	ctrl := NewController(fetcher, 8, zap.NewNop())

	require.NoError(t, ctrl.Refresh(context.Background()))
	require.NoError(t, ctrl.GoToPage(context.Background(), 3))

	require.NoError(t, ctrl.SetSortKey(context.Background(), SortPriceAsc))
	_, sortKey, page, _, _, _ := ctrl.State()
	assert.Equal(t, SortPriceAsc, sortKey)
	assert.Equal(t, 1, page)
	assert.Equal(t, "price_asc", fetcher.lastSort)
}

func TestController_InvalidSortKeyRejectedWithoutFetch(t *testing.T) {
	fetcher := &fakePageFetcher{products: manyProducts(20)}
	ctrl := NewController(fetcher, 8, zap.NewNop())

	err := ctrl.SetSortKey(context.Background(), "cheapest")
	assert.Equal(t, ErrInvalidSortKey, err)
	assert.Zero(t, fetcher.calls)
}

func TestController_GoToPageOutOfRangeIsNoOp(t *testing.T) {
	fetcher := &fakePageFetcher{products: manyProducts(20)}
	ctrl := NewController(fetcher, 8, zap.NewNop())

	require.NoError(t, ctrl.Refresh(context.Background()))
	fetchesAfterLoad := fetcher.calls

	// 20 products at page size 8 means 3 pages
	require.NoError(t, ctrl.GoToPage(context.Background(), 0))
	require.NoError(t, ctrl.GoToPage(context.Background(), 4))
	_, _, page, _, _, totalPages := ctrl.State()
	assert.Equal(t, 1, page)
	assert.Equal(t, 3, totalPages)
	assert.Equal(t, fetchesAfterLoad, fetcher.calls)
}

func TestController_FailedFetchKeepsLastState(t *testing.T) {
	fetcher := &fakePageFetcher{products: manyProducts(20)}
	ctrl := NewController(fetcher, 8, zap.NewNop())

	require.NoError(t, ctrl.Refresh(context.Background()))
	itemsBefore := ctrl.Items()
	require.Len(t, itemsBefore, 8)

	fetcher.fail = true
	err := ctrl.GoToPage(context.Background(), 2)
	require.Error(t, err)

	// The previous page survives the failure
	assert.Equal(t, itemsBefore, ctrl.Items())
	_, _, _, _, total, _ := ctrl.State()
	assert.Equal(t, 20, total)
}

func TestController_Apply(t *testing.T) {
	fetcher := &fakePageFetcher{products: manyProducts(20)}
	ctrl := NewController(fetcher, 8, zap.NewNop())

	require.NoError(t, ctrl.Apply(context.Background(), "Product 1", SortNewest, 2))
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "Product 1", fetcher.lastSearch)
	assert.Equal(t, "newest", fetcher.lastSort)
	assert.Equal(t, 2, fetcher.lastPage)

	err := ctrl.Apply(context.Background(), "", "bogus", 1)
	assert.Equal(t, ErrInvalidSortKey, err)
	assert.Equal(t, 1, fetcher.calls)
}

// fakeCollectionFetcher serves the whole collection at once.
type fakeCollectionFetcher struct {
	products []models.Product
	fail     bool
}

func (f *fakeCollectionFetcher) ListProducts(context.Context) ([]models.Product, error) {
	if f.fail {
		return nil, errors.NewNetworkError("GET /products", fmt.Errorf("connection refused"))
	}
	return f.products, nil
}

func TestLocalController_ViewPaginatesFilteredCollection(t *testing.T) {
	fetcher := &fakeCollectionFetcher{products: manyProducts(20)}
	ctrl := NewLocalController(fetcher, 8, zap.NewNop())

	require.NoError(t, ctrl.Load(context.Background()))
	assert.True(t, ctrl.Loaded())

	items, total, totalPages, pages := ctrl.View()
	assert.Len(t, items, 8)
	assert.Equal(t, 20, total)
	assert.Equal(t, 3, totalPages)
	assert.Equal(t, refs(1, 2, 3), pages)

	ctrl.GoToPage(3)
	items, _, _, _ = ctrl.View()
	assert.Len(t, items, 4)
}

func TestLocalController_SearchRecomputesWithoutRefetch(t *testing.T) {
	fetcher := &fakeCollectionFetcher{products: manyProducts(20)}
	ctrl := NewLocalController(fetcher, 8, zap.NewNop())
	require.NoError(t, ctrl.Load(context.Background()))

	ctrl.GoToPage(2)
	ctrl.SetSearchTerm("Product 0")

	_, _, page, _ := ctrl.State()
	assert.Equal(t, 1, page)

	items, total, totalPages, _ := ctrl.View()
	assert.Len(t, items, 8)
	assert.Equal(t, 10, total) // Product 00..09
	assert.Equal(t, 2, totalPages)
}

func TestLocalController_FailedLoadKeepsCollection(t *testing.T) {
	fetcher := &fakeCollectionFetcher{products: manyProducts(5)}
	ctrl := NewLocalController(fetcher, 8, zap.NewNop())
	require.NoError(t, ctrl.Load(context.Background()))

	fetcher.fail = true
	require.Error(t, ctrl.Load(context.Background()))

	assert.True(t, ctrl.Loaded())
	items, total, _, _ := ctrl.View()
	assert.Len(t, items, 5)
	assert.Equal(t, 5, total)
}

func TestLocalController_OutOfRangePageIsNoOp(t *testing.T) {
	fetcher := &fakeCollectionFetcher{products: manyProducts(10)}
	ctrl := NewLocalController(fetcher, 8, zap.NewNop())
	require.NoError(t, ctrl.Load(context.Background()))

	ctrl.GoToPage(0)
	_, _, page, _ := ctrl.State()
	assert.Equal(t, 1, page)

	ctrl.GoToPage(5)
	_, _, page, _ = ctrl.State()
	assert.Equal(t, 1, page)
}
