package models

import "time"

// Product is a listing in the remote marketplace product collection.
// The collection is read-only for this service; products are created and
// owned by exporters through the marketplace itself.
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Image             string    `json:"image"`
	Description       string    `json:"description"`
	Price             float64   `json:"price"`
	AvailableQuantity int       `json:"available_quantity"`
	Rating            float64   `json:"rating"`
	ReviewCount       int       `json:"review_count,omitempty"`
	OriginCountry     string    `json:"origin_country"`
	ExporterEmail     string    `json:"exporter_email"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// ListedAt is the timestamp used for ordering: created time when present,
// otherwise the update time. Products with neither sort as the zero time.
func (p Product) ListedAt() time.Time {
	if !p.CreatedAt.IsZero() {
		return p.CreatedAt
	}
	return p.UpdatedAt
}

// Notification is one entry in a viewer's inbox. Its ID equals the source
// product's ID, which is the dedup key across reconciliation passes.
type Notification struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	ProductID     string    `json:"product_id"`
	ProductImage  string    `json:"product_image"`
	ProductName   string    `json:"product_name"`
	ExporterEmail string    `json:"exporter_email"`
	Price         float64   `json:"price"`
	OriginCountry string    `json:"origin_country"`
	Timestamp     time.Time `json:"timestamp"`
	Read          bool      `json:"read"`
}

// NotificationTypeNewProduct is the only notification type emitted today.
const NotificationTypeNewProduct = "NEW_PRODUCT"

// NewProductNotification builds the candidate notification for a product.
func NewProductNotification(p Product) Notification {
	return Notification{
		ID:            p.ID,
		Type:          NotificationTypeNewProduct,
		Title:         "New Product Available",
		Message:       p.Name + " is now available for import",
		ProductID:     p.ID,
		ProductImage:  p.Image,
		ProductName:   p.Name,
		ExporterEmail: p.ExporterEmail,
		Price:         p.Price,
		OriginCountry: p.OriginCountry,
		Timestamp:     p.ListedAt(),
		Read:          false,
	}
}

// Import is a recorded import transaction against a product.
type Import struct {
	ID                string `json:"id"`
	ProductID         string `json:"product"`
	ImporterName      string `json:"importer_name"`
	ImporterEmail     string `json:"importer_email"`
	ImportingQuantity int    `json:"importing_quantity"`
}

// PaginatedProducts is the server-side pagination envelope returned by
// GET /products/paginated on the marketplace API.
type PaginatedProducts struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
