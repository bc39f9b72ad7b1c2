package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/pkg/errors"

	"go.uber.org/zap"
)

// ProductSource is the read surface of the remote product collection service.
// Handlers and the reconciler depend on this interface so tests can swap in
// a fake collection.
type ProductSource interface {
	// ListProducts fetches the full product collection.
	ListProducts(ctx context.Context) ([]models.Product, error)
	// ListProductsByExporter fetches products filtered server-side by exporter email.
	ListProductsByExporter(ctx context.Context, email string) ([]models.Product, error)
	// ListProductsPaginated fetches one page of products with server-side
	// search and sort, plus the total count for pagination.
	ListProductsPaginated(ctx context.Context, page, limit int, search, sort string) (models.PaginatedProducts, error)
}

// ImportSource is the import-transaction surface of the remote marketplace API.
type ImportSource interface {
	ListImports(ctx context.Context, email string) ([]models.Import, error)
	CreateImport(ctx context.Context, imp models.Import) error
	// DecreaseQuantity decrements a product's available quantity after an import.
	DecreaseQuantity(ctx context.Context, productID string, by int) error
}

// Client talks to the remote marketplace API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a marketplace API client with an explicit request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListProducts fetches the full product collection
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var wire []wireProduct
	if err := c.getJSON(ctx, "/products", nil, &wire); err != nil {
		return nil, err
	}
	return decodeProducts(wire), nil
}

// ListProductsByExporter fetches the products owned by one exporter
func (c *Client) ListProductsByExporter(ctx context.Context, email string) ([]models.Product, error) {
	q := url.Values{}
	q.Set("email", email)

	var wire []wireProduct
	if err := c.getJSON(ctx, "/products", q, &wire); err != nil {
		return nil, err
	}
	return decodeProducts(wire), nil
}

// ListProductsPaginated fetches one page with server-side search/sort
func (c *Client) ListProductsPaginated(ctx context.Context, page, limit int, search, sort string) (models.PaginatedProducts, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	if sort != "" {
		q.Set("sort", sort)
	}

	var wire struct {
		Products []wireProduct `json:"products"`
		Total    int           `json:"total"`
	}
	if err := c.getJSON(ctx, "/products/paginated", q, &wire); err != nil {
		return models.PaginatedProducts{}, err
	}

	return models.PaginatedProducts{
		Products: decodeProducts(wire.Products),
		Total:    wire.Total,
	}, nil
}

// ListImports fetches the import records of one importer
func (c *Client) ListImports(ctx context.Context, email string) ([]models.Import, error) {
	q := url.Values{}
	q.Set("email", email)

	var wire []wireImport
	if err := c.getJSON(ctx, "/imports", q, &wire); err != nil {
		return nil, err
	}

	imports := make([]models.Import, 0, len(wire))
	for _, w := range wire {
		imports = append(imports, models.Import{
			ID:                w.ID,
			ProductID:         w.Product,
			ImporterName:      w.ImporterName,
			ImporterEmail:     w.ImporterEmail,
			ImportingQuantity: flexInt(w.ImportingQuantity),
		})
	}
	return imports, nil
}

// CreateImport records an import transaction
func (c *Client) CreateImport(ctx context.Context, imp models.Import) error {
	body := map[string]interface{}{
		"product":            imp.ProductID,
		"importer_name":      imp.ImporterName,
		"importer_email":     imp.ImporterEmail,
		"importing_quantity": imp.ImportingQuantity,
	}
	return c.postJSON(ctx, "/imports", body)
}

// DecreaseQuantity decrements a product's available quantity after an import
func (c *Client) DecreaseQuantity(ctx context.Context, productID string, by int) error {
	body := map[string]interface{}{"decreaseBy": by}
	return c.patchJSON(ctx, "/products/"+productID, body)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.NewNetworkError("GET "+path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError("GET "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewNetworkError("GET "+path, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.NewParseError("GET "+path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) error {
	return c.writeJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) patchJSON(ctx context.Context, path string, body interface{}) error {
	return c.writeJSON(ctx, http.MethodPatch, path, body)
}

func (c *Client) writeJSON(ctx context.Context, method, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.NewInternalError("failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.NewNetworkError(method+" "+path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewNetworkError(method+" "+path, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}
