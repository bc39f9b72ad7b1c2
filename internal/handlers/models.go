package handlers

// ErrorResponse represents an error response
// @Description Error response with error message
type ErrorResponse struct {
	Error   string `json:"error" example:"ProductNotFound"`
	Message string `json:"message" example:"product not found"`
	Details string `json:"details" example:"Product ID: 65a1f0c2b4"`
}

// ProductResponse represents one marketplace product
// @Description Response with product details
type ProductResponse struct {
	// Unique product identifier from the marketplace collection
	ID string `json:"id" example:"65a1f0c2b4d8e91f2a3b4c5d"`

	// Product name
	Name string `json:"name" example:"Arabica Coffee Beans"`

	// Product image URL
	Image string `json:"image" example:"https://example.com/coffee.jpg"`

	// Product description
	Description string `json:"description" example:"Single-origin arabica beans, medium roast"`

	// Unit price
	Price float64 `json:"price" example:"24.5"`

	// Quantity available for import
	AvailableQuantity int `json:"available_quantity" example:"120"`

	// Average rating (0 to 5)
	Rating float64 `json:"rating" example:"4.7"`

	// Number of reviews behind the rating
	ReviewCount int `json:"review_count" example:"31"`

	// Country of origin
	OriginCountry string `json:"origin_country" example:"Colombia"`

	// Exporter account email
	ExporterEmail string `json:"exporter_email" example:"exporter@example.com"`

	// Creation timestamp (ISO 8601 format, empty when unknown)
	CreatedAt string `json:"created_at,omitempty" example:"2024-01-15T10:30:00Z"`

	// Last update timestamp (ISO 8601 format, empty when unknown)
	UpdatedAt string `json:"updated_at,omitempty" example:"2024-01-15T11:45:00Z"`
}

// PageRefResponse is one entry of the windowed page-number control: either a
// concrete page number or an ellipsis gap.
type PageRefResponse struct {
	Page     int  `json:"page,omitempty" example:"4"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// ProductListResponse represents a paginated product listing
// @Description Response with one page of products and pagination metadata
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`

	// Total number of matching products across all pages
	Total int `json:"total" example:"42"`

	// Current page number
	Page int `json:"page" example:"2"`

	// Products per page
	PageSize int `json:"page_size" example:"8"`

	// Total number of pages
	TotalPages int `json:"total_pages" example:"6"`

	// Windowed page-number control for the current page
	Pages []PageRefResponse `json:"pages"`
}

// ProductDetailResponse represents a product with related suggestions
// @Description Response with product details and related products
type ProductDetailResponse struct {
	Product ProductResponse `json:"product"`

	// Other products from the same origin country
	Related []ProductResponse `json:"related"`
}

// ExportListResponse represents the viewer's own listings
type ExportListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total" example:"5"`
}

// ImportRecordResponse represents one import joined with its product
type ImportRecordResponse struct {
	ID                string  `json:"id" example:"66b2e1d3c5"`
	ProductID         string  `json:"product_id" example:"65a1f0c2b4d8e91f2a3b4c5d"`
	ProductName       string  `json:"product_name" example:"Arabica Coffee Beans"`
	ProductImage      string  `json:"product_image" example:"https://example.com/coffee.jpg"`
	Price             float64 `json:"price" example:"24.5"`
	OriginCountry     string  `json:"origin_country" example:"Colombia"`
	ImportingQuantity int     `json:"importing_quantity" example:"10"`
	TotalCost         float64 `json:"total_cost" example:"245"`
}

// ImportListResponse represents the viewer's import records
type ImportListResponse struct {
	Imports []ImportRecordResponse `json:"imports"`
	Total   int                    `json:"total" example:"3"`
}

// CreateImportRequest represents the import creation request
type CreateImportRequest struct {
	ProductID         string `json:"product_id" binding:"required" example:"65a1f0c2b4d8e91f2a3b4c5d"`
	ImportingQuantity int    `json:"importing_quantity" binding:"required" example:"10"`
}

// CountryStat is the per-country product count on the dashboard
type CountryStat struct {
	Country string `json:"country" example:"Colombia"`
	Count   int    `json:"count" example:"7"`
}

// TopProductStat is one of the highest-value listings on the dashboard
type TopProductStat struct {
	ID    string  `json:"id" example:"65a1f0c2b4d8e91f2a3b4c5d"`
	Name  string  `json:"name" example:"Arabica Coffee Beans"`
	Value float64 `json:"value" example:"2940"`
}

// DashboardStatsResponse represents the viewer's dashboard summary
// @Description Response with aggregate statistics over the viewer's listings and imports
type DashboardStatsResponse struct {
	TotalProducts int `json:"total_products" example:"5"`

	// Sum of price times available quantity over the viewer's listings
	TotalValue float64 `json:"total_value" example:"10250.5"`

	AverageRating float64 `json:"average_rating" example:"4.3"`

	TotalImports int `json:"total_imports" example:"3"`

	ByCountry []CountryStat `json:"by_country"`

	TopProducts []TopProductStat `json:"top_products"`
}

// NotificationResponse represents one inbox entry
// @Description Response with notification details
type NotificationResponse struct {
	ID            string  `json:"id" example:"65a1f0c2b4d8e91f2a3b4c5d"`
	Type          string  `json:"type" example:"NEW_PRODUCT"`
	Title         string  `json:"title" example:"New Product Available"`
	Message       string  `json:"message" example:"Arabica Coffee Beans is now available for import"`
	ProductID     string  `json:"product_id" example:"65a1f0c2b4d8e91f2a3b4c5d"`
	ProductImage  string  `json:"product_image" example:"https://example.com/coffee.jpg"`
	ProductName   string  `json:"product_name" example:"Arabica Coffee Beans"`
	ExporterEmail string  `json:"exporter_email" example:"exporter@example.com"`
	Price         float64 `json:"price" example:"24.5"`
	OriginCountry string  `json:"origin_country" example:"Colombia"`

	// Entry timestamp (ISO 8601 format)
	Timestamp string `json:"timestamp" example:"2024-01-15T10:30:00Z"`

	// Relative timestamp for display
	TimeAgo string `json:"time_ago" example:"5 minutes ago"`

	Read bool `json:"read" example:"false"`
}

// InboxResponse represents a viewer's notification inbox
type InboxResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count" example:"2"`
}

// UnreadCountResponse represents the unread notification count
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count" example:"2"`
}
