package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, zap.NewNop())
}

func TestListProducts_DecodesMixedNumericShapes(t *testing.T) {
	payload := `[
		{
			"_id": "p1",
			"product_name": "Arabica Coffee",
			"product_image": "https://example.com/coffee.jpg",
			"price": "24.50",
			"available_quantity": "120",
			"rating": 4.7,
			"review_count": 31,
			"origin_country": "Colombia",
			"exporter_email": "exporter@example.com",
			"created_at": "2024-01-15T10:30:00Z"
		},
		{
			"_id": "p2",
			"product_name": "Black Tea",
			"price": 12,
			"available_quantity": 300.0,
			"rating": "4.2",
			"origin_country": "India",
			"exporter_email": "tea@example.com"
		}
	]`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, models.Product{
		ID:                "p1",
		Name:              "Arabica Coffee",
		Image:             "https://example.com/coffee.jpg",
		Price:             24.5,
		AvailableQuantity: 120,
		Rating:            4.7,
		ReviewCount:       31,
		OriginCountry:     "Colombia",
		ExporterEmail:     "exporter@example.com",
		CreatedAt:         time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}, products[0])

	// Numbers-as-floats and strings-as-floats both coerce
	assert.Equal(t, 12.0, products[1].Price)
	assert.Equal(t, 300, products[1].AvailableQuantity)
	assert.Equal(t, 4.2, products[1].Rating)
	assert.True(t, products[1].CreatedAt.IsZero())
}

func TestListProducts_ClampsOutOfRangeValues(t *testing.T) {
	payload := `[
		{"_id": "p1", "product_name": "Broken", "price": -5, "available_quantity": -10, "rating": 9.5},
		{"_id": "p2", "product_name": "Garbage Fields", "price": "not-a-number", "rating": "??"}
	]`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, 0.0, products[0].Price)
	assert.Equal(t, 0, products[0].AvailableQuantity)
	assert.Equal(t, 5.0, products[0].Rating)

	assert.Equal(t, 0.0, products[1].Price)
	assert.Equal(t, 0.0, products[1].Rating)
}

func TestListProductsByExporter_PassesEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "exporter@example.com", r.URL.Query().Get("email"))
		w.Write([]byte(`[]`))
	})

	products, err := client.ListProductsByExporter(context.Background(), "exporter@example.com")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestListProductsPaginated_PassesQueryAndDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/paginated", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "8", r.URL.Query().Get("limit"))
		assert.Equal(t, "coffee", r.URL.Query().Get("search"))
		assert.Equal(t, "price_asc", r.URL.Query().Get("sort"))

		w.Write([]byte(`{"products": [{"_id": "p9", "product_name": "Arabica Coffee"}], "total": 42}`))
	})

	result, err := client.ListProductsPaginated(context.Background(), 2, 8, "coffee", "price_asc")
	require.NoError(t, err)
	assert.Equal(t, 42, result.Total)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "p9", result.Products[0].ID)
}

func TestListProductsPaginated_OmitsEmptyQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasSearch := r.URL.Query()["search"]
		_, hasSort := r.URL.Query()["sort"]
		assert.False(t, hasSearch)
		assert.False(t, hasSort)
		w.Write([]byte(`{"products": [], "total": 0}`))
	})

	_, err := client.ListProductsPaginated(context.Background(), 1, 8, "", "")
	require.NoError(t, err)
}

func TestListProducts_ErrorClassification(t *testing.T) {
	t.Run("unreachable server is a network error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())

		_, err := client.ListProducts(context.Background())
		require.Error(t, err)
		stdErr, ok := err.(*errors.StandardError)
		require.True(t, ok)
		assert.Equal(t, "NetworkError", stdErr.Code)
	})

	t.Run("non-2xx status is a network error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.ListProducts(context.Background())
		require.Error(t, err)
		stdErr, ok := err.(*errors.StandardError)
		require.True(t, ok)
		assert.Equal(t, "NetworkError", stdErr.Code)
	})

	t.Run("malformed body is a parse error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"this is": not json`))
		})

		_, err := client.ListProducts(context.Background())
		require.Error(t, err)
		stdErr, ok := err.(*errors.StandardError)
		require.True(t, ok)
		assert.Equal(t, "ParseError", stdErr.Code)
	})
}

func TestListImports_DecodesRecords(t *testing.T) {
	payload := `[
		{"_id": "i1", "product": "p1", "importer_name": "Import Co.", "importer_email": "importer@example.com", "importing_quantity": "10"},
		{"_id": "i2", "product": "p2", "importer_name": "Import Co.", "importer_email": "importer@example.com", "importing_quantity": 5}
	]`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/imports", r.URL.Path)
		assert.Equal(t, "importer@example.com", r.URL.Query().Get("email"))
		w.Write([]byte(payload))
	})

	imports, err := client.ListImports(context.Background(), "importer@example.com")
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, 10, imports[0].ImportingQuantity)
	assert.Equal(t, 5, imports[1].ImportingQuantity)
	assert.Equal(t, "p1", imports[0].ProductID)
}

func TestCreateImport_PostsWireShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/imports", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["product"])
		assert.Equal(t, "importer@example.com", body["importer_email"])
		assert.Equal(t, 10.0, body["importing_quantity"])

		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateImport(context.Background(), models.Import{
		ProductID:         "p1",
		ImporterName:      "Import Co.",
		ImporterEmail:     "importer@example.com",
		ImportingQuantity: 10,
	})
	require.NoError(t, err)
}

func TestDecreaseQuantity_PatchesProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/products/p1", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 10.0, body["decreaseBy"])

		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DecreaseQuantity(context.Background(), "p1", 10))
}

func TestParseTime_Shapes(t *testing.T) {
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), parseTime("2024-01-15T10:30:00Z"))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), parseTime("2024-01-15"))
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
}
