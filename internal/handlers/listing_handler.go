package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"marketplace-service/internal/config"
	"marketplace-service/internal/listing"
	"marketplace-service/internal/marketplace"
	"marketplace-service/internal/models"
	"marketplace-service/pkg/errors"
	"marketplace-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// relatedLimit caps the related-products list on the detail endpoint
const relatedLimit = 3

// ListingHandler serves the product listing, export and import endpoints
// against the remote marketplace collection.
type ListingHandler struct {
	logger   *zap.Logger
	products marketplace.ProductSource
	imports  marketplace.ImportSource
	pageSize int
}

// NewListingHandler creates a listing handler
func NewListingHandler(logger *zap.Logger, cfg *config.Config, products marketplace.ProductSource, imports marketplace.ImportSource) *ListingHandler {
	return &ListingHandler{
		logger:   logger,
		products: products,
		imports:  imports,
		pageSize: cfg.PageSize,
	}
}

// ListProducts handles GET /api/v1/products
//
// The marketplace collection endpoint has no server-side pagination, so the
// whole collection is fetched and search, sort and pagination run locally.
//
// @Summary      List products
// @Description  Returns one page of the product collection with client-side search and sort applied
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Case-insensitive name filter"
// @Param        sort    query     string  false  "Sort key: price_asc, price_desc, rating_asc, rating_desc, newest, oldest, popular"
// @Param        page    query     int     false  "Page number (default 1)"
// @Success      200     {object}  ProductListResponse
// @Failure      400     {object}  ErrorResponse  "Unknown sort key"
// @Failure      502     {object}  ErrorResponse  "Marketplace unreachable or returned garbage"
// @Router       /products [get]
func (h *ListingHandler) ListProducts(c *gin.Context) {
	sortKey := listing.SortKey(c.Query("sort"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	ctrl := listing.NewLocalController(h.products, h.pageSize, h.logger)
	if err := ctrl.SetSortKey(sortKey); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	ctrl.SetSearchTerm(c.Query("search"))

	if err := ctrl.Load(c.Request.Context()); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	ctrl.GoToPage(page)
	items, total, totalPages, pages := ctrl.View()
	_, _, currentPage, pageSize := ctrl.State()

	c.JSON(http.StatusOK, ProductListResponse{
		Products:   toProductResponses(items),
		Total:      total,
		Page:       currentPage,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Pages:      toPageRefs(pages),
	})
}

// ListProductsPaginated handles GET /api/v1/products/paginated
//
// @Summary      List products (server-side pagination)
// @Description  Passes search, sort and page through to the marketplace pagination endpoint
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term forwarded to the marketplace"
// @Param        sort    query     string  false  "Sort key forwarded to the marketplace"
// @Param        page    query     int     false  "Page number (default 1)"
// @Success      200     {object}  ProductListResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      502     {object}  ErrorResponse
// @Router       /products/paginated [get]
func (h *ListingHandler) ListProductsPaginated(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	ctrl := listing.NewController(h.products, h.pageSize, h.logger)
	if err := ctrl.Apply(c.Request.Context(), c.Query("search"), listing.SortKey(c.Query("sort")), page); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	_, _, currentPage, pageSize, total, totalPages := ctrl.State()

	c.JSON(http.StatusOK, ProductListResponse{
		Products:   toProductResponses(ctrl.Items()),
		Total:      total,
		Page:       currentPage,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Pages:      toPageRefs(ctrl.PageNumbers()),
	})
}

// GetProduct handles GET /api/v1/products/:id
//
// @Summary      Get product by ID
// @Description  Returns one product with up to three related products from the same origin country
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  ProductDetailResponse
// @Failure      404  {object}  ErrorResponse  "Product not found"
// @Failure      502  {object}  ErrorResponse
// @Router       /products/{id} [get]
func (h *ListingHandler) GetProduct(c *gin.Context) {
	id := c.Param("id")

	all, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	var found *models.Product
	for i := range all {
		if all[i].ID == id {
			found = &all[i]
			break
		}
	}
	if found == nil {
		c.Error(errors.NewProductNotFound(id))
		c.Abort()
		return
	}

	related := make([]ProductResponse, 0, relatedLimit)
	for _, p := range all {
		if p.ID == id || p.OriginCountry != found.OriginCountry {
			continue
		}
		related = append(related, toProductResponse(p))
		if len(related) == relatedLimit {
			break
		}
	}

	c.JSON(http.StatusOK, ProductDetailResponse{
		Product: toProductResponse(*found),
		Related: related,
	})
}

// ListExports handles GET /api/v1/exports
//
// @Summary      List the viewer's own listings
// @Description  Returns the authenticated exporter's products with multi-field search and export-specific sort options
// @Tags         exports
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Filter on name, origin country or description"
// @Param        sort    query     string  false  "Sort key: newest, price-high, price-low, quantity-high, rating-high"
// @Success      200     {object}  ExportListResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      502     {object}  ErrorResponse
// @Router       /exports [get]
func (h *ListingHandler) ListExports(c *gin.Context) {
	viewer := middleware.GetViewer(c)

	sortKey := listing.ExportSortKey(c.Query("sort"))
	if !listing.ValidExportSort(sortKey) {
		c.Error(listing.ErrInvalidSortKey)
		c.Abort()
		return
	}

	products, err := h.products.ListProductsByExporter(c.Request.Context(), viewer)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	matched := listing.SortExports(listing.SearchAny(products, c.Query("search")), sortKey)

	c.JSON(http.StatusOK, ExportListResponse{
		Products: toProductResponses(matched),
		Total:    len(matched),
	})
}

// ListImports handles GET /api/v1/imports
//
// @Summary      List the viewer's imports
// @Description  Returns the authenticated importer's records joined with their products. Records whose product no longer exists are skipped.
// @Tags         imports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ImportListResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /imports [get]
func (h *ListingHandler) ListImports(c *gin.Context) {
	viewer := middleware.GetViewer(c)

	records, err := h.imports.ListImports(c.Request.Context(), viewer)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	joined := make([]ImportRecordResponse, 0, len(records))
	for _, rec := range records {
		p, ok := byID[rec.ProductID]
		if !ok {
			// Product was withdrawn from the marketplace after the import
			h.logger.Debug("Skipping import with missing product",
				zap.String("import_id", rec.ID),
				zap.String("product_id", rec.ProductID),
			)
			continue
		}
		joined = append(joined, ImportRecordResponse{
			ID:                rec.ID,
			ProductID:         rec.ProductID,
			ProductName:       p.Name,
			ProductImage:      p.Image,
			Price:             p.Price,
			OriginCountry:     p.OriginCountry,
			ImportingQuantity: rec.ImportingQuantity,
			TotalCost:         p.Price * float64(rec.ImportingQuantity),
		})
	}

	c.JSON(http.StatusOK, ImportListResponse{
		Imports: joined,
		Total:   len(joined),
	})
}

// CreateImport handles POST /api/v1/imports
//
// @Summary      Import a product
// @Description  Records an import for the authenticated viewer and decreases the product's available quantity
// @Tags         imports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateImportRequest  true  "Import request"
// @Success      201      {object}  map[string]string
// @Failure      400      {object}  ErrorResponse  "Quantity out of range"
// @Failure      404      {object}  ErrorResponse  "Product not found"
// @Failure      502      {object}  ErrorResponse
// @Router       /imports [post]
func (h *ListingHandler) CreateImport(c *gin.Context) {
	var req CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid import request", zap.Error(err))
		c.Error(errors.NewInvalidRequest("invalid request body", err.Error()))
		c.Abort()
		return
	}

	if req.ImportingQuantity < 1 {
		c.Error(errors.NewValidationError("importing quantity must be at least 1", "importing_quantity"))
		c.Abort()
		return
	}

	all, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	var product *models.Product
	for i := range all {
		if all[i].ID == req.ProductID {
			product = &all[i]
			break
		}
	}
	if product == nil {
		c.Error(errors.NewProductNotFound(req.ProductID))
		c.Abort()
		return
	}

	if req.ImportingQuantity > product.AvailableQuantity {
		c.Error(errors.NewValidationError("importing quantity exceeds available quantity", "importing_quantity"))
		c.Abort()
		return
	}

	viewer := middleware.GetViewer(c)
	displayName := c.GetString("display_name")

	imp := models.Import{
		ProductID:         req.ProductID,
		ImporterName:      displayName,
		ImporterEmail:     viewer,
		ImportingQuantity: req.ImportingQuantity,
	}
	if err := h.imports.CreateImport(c.Request.Context(), imp); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	if err := h.imports.DecreaseQuantity(c.Request.Context(), req.ProductID, req.ImportingQuantity); err != nil {
		// The import is recorded; the quantity catches up on the next
		// marketplace sync
		h.logger.Warn("Failed to decrease product quantity after import",
			zap.String("product_id", req.ProductID),
			zap.Int("quantity", req.ImportingQuantity),
			zap.Error(err),
		)
	}

	h.logger.Info("Import recorded",
		zap.String("viewer", viewer),
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.ImportingQuantity),
	)

	c.JSON(http.StatusCreated, gin.H{"status": "imported", "product_id": req.ProductID})
}

// DashboardStats handles GET /api/v1/dashboard/stats
//
// @Summary      Dashboard statistics
// @Description  Aggregates the viewer's listings and imports into dashboard totals
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  DashboardStatsResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /dashboard/stats [get]
func (h *ListingHandler) DashboardStats(c *gin.Context) {
	viewer := middleware.GetViewer(c)

	products, err := h.products.ListProductsByExporter(c.Request.Context(), viewer)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	records, err := h.imports.ListImports(c.Request.Context(), viewer)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	var totalValue, ratingSum float64
	countryCounts := make(map[string]int)
	top := make([]TopProductStat, 0, len(products))

	for _, p := range products {
		value := p.Price * float64(p.AvailableQuantity)
		totalValue += value
		ratingSum += p.Rating
		countryCounts[p.OriginCountry]++
		top = append(top, TopProductStat{ID: p.ID, Name: p.Name, Value: value})
	}

	avgRating := 0.0
	if len(products) > 0 {
		avgRating = ratingSum / float64(len(products))
	}

	byCountry := make([]CountryStat, 0, len(countryCounts))
	for country, count := range countryCounts {
		byCountry = append(byCountry, CountryStat{Country: country, Count: count})
	}
	sort.Slice(byCountry, func(i, j int) bool {
		if byCountry[i].Count != byCountry[j].Count {
			return byCountry[i].Count > byCountry[j].Count
		}
		return byCountry[i].Country < byCountry[j].Country
	})

	sort.SliceStable(top, func(i, j int) bool { return top[i].Value > top[j].Value })
	if len(top) > 5 {
		top = top[:5]
	}

	c.JSON(http.StatusOK, DashboardStatsResponse{
		TotalProducts: len(products),
		TotalValue:    totalValue,
		AverageRating: avgRating,
		TotalImports:  len(records),
		ByCountry:     byCountry,
		TopProducts:   top,
	})
}

func toProductResponse(p models.Product) ProductResponse {
	resp := ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		Image:             p.Image,
		Description:       p.Description,
		Price:             p.Price,
		AvailableQuantity: p.AvailableQuantity,
		Rating:            p.Rating,
		ReviewCount:       p.ReviewCount,
		OriginCountry:     p.OriginCountry,
		ExporterEmail:     p.ExporterEmail,
	}
	if !p.CreatedAt.IsZero() {
		resp.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = p.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func toProductResponses(products []models.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

func toPageRefs(pages []listing.PageRef) []PageRefResponse {
	out := make([]PageRefResponse, len(pages))
	for i, p := range pages {
		out[i] = PageRefResponse{Page: p.Page, Ellipsis: p.Ellipsis}
	}
	return out
}
