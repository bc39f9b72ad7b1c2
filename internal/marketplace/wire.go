package marketplace

import (
	"encoding/json"
	"strconv"
	"time"

	"marketplace-service/internal/models"
)

// The remote collection is schemaless: price, quantities, ratings and review
// counts arrive as JSON numbers or as numeric strings depending on which form
// wrote the document, and timestamps may be missing entirely. Everything is
// converted exactly once here; the rest of the service only sees typed records.

type wireProduct struct {
	ID                string          `json:"_id"`
	Name              string          `json:"product_name"`
	Image             string          `json:"product_image"`
	Description       string          `json:"description"`
	Price             json.RawMessage `json:"price"`
	AvailableQuantity json.RawMessage `json:"available_quantity"`
	Rating            json.RawMessage `json:"rating"`
	ReviewCount       json.RawMessage `json:"review_count"`
	OriginCountry     string          `json:"origin_country"`
	ExporterEmail     string          `json:"exporter_email"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type wireImport struct {
	ID                string          `json:"_id"`
	Product           string          `json:"product"`
	ImporterName      string          `json:"importer_name"`
	ImporterEmail     string          `json:"importer_email"`
	ImportingQuantity json.RawMessage `json:"importing_quantity"`
}

func decodeProducts(wire []wireProduct) []models.Product {
	products := make([]models.Product, 0, len(wire))
	for _, w := range wire {
		products = append(products, decodeProduct(w))
	}
	return products
}

func decodeProduct(w wireProduct) models.Product {
	p := models.Product{
		ID:                w.ID,
		Name:              w.Name,
		Image:             w.Image,
		Description:       w.Description,
		Price:             flexFloat(w.Price),
		AvailableQuantity: flexInt(w.AvailableQuantity),
		Rating:            flexFloat(w.Rating),
		ReviewCount:       flexInt(w.ReviewCount),
		OriginCountry:     w.OriginCountry,
		ExporterEmail:     w.ExporterEmail,
		CreatedAt:         parseTime(w.CreatedAt),
		UpdatedAt:         parseTime(w.UpdatedAt),
	}

	// Clamp out-of-range values instead of dropping the record: a listing
	// with a bad rating is still a listing.
	if p.Price < 0 {
		p.Price = 0
	}
	if p.AvailableQuantity < 0 {
		p.AvailableQuantity = 0
	}
	if p.Rating < 0 {
		p.Rating = 0
	}
	if p.Rating > 5 {
		p.Rating = 5
	}
	return p
}

// flexFloat converts a JSON number or numeric string to float64, defaulting to 0.
func flexFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}
	return 0
}

// flexInt converts a JSON number or numeric string to int, defaulting to 0.
func flexInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	// Some writers store integers as floats ("12.0") or strings ("12")
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// parseTime parses an RFC3339 timestamp, returning the zero time when the
// field is absent or malformed.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// Second common shape in the collection: date-only strings
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
