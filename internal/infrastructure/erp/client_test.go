package erp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedServer serves one JSON body per page number for a single resource
func pagedServer(t *testing.T, resource string, pages map[int]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+resource, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)
		body, ok := pages[page]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL + "/", Token: "secret", PageSize: 100}, nil)
	require.NoError(t, err)
	return client
}

func TestConfig_Validate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Config{BaseURL: " https://erp.example.com/api/ "}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://erp.example.com/api", cfg.BaseURL)
		assert.Equal(t, defaultPageSize, cfg.PageSize)
		assert.Equal(t, defaultTimeout, cfg.Timeout)
		assert.Equal(t, 1, cfg.RateLimitBurst)
	})

	t.Run("page size is capped", func(t *testing.T) {
		cfg := Config{BaseURL: "http://erp", PageSize: 1_000_000}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, maxPageSize, cfg.PageSize)
	})

	t.Run("missing base url", func(t *testing.T) {
		cfg := Config{}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingBaseURL)
	})

	t.Run("unknown charset", func(t *testing.T) {
		cfg := Config{BaseURL: "http://erp", Charset: "koi8-r"}
		assert.ErrorIs(t, cfg.Validate(), ErrUnsupportedCharset)
	})
}

func TestClient_ListProducts(t *testing.T) {
	server := pagedServer(t, resourceProducts, map[int]string{
		1: `{"data":[{"codigo":" A1 ","descripcion":"Aceite 1L","grupo":"G1","capacidad":"C1",
			"indicador_stock":"S","stock_actual":"10,5","stock_comprometido":2,"unidad":"UN",
			"cantidad_empaque":"12","fecha_inclusion":"15/03/2024","fecha_modificacion":"  /  /  "}],
			"page":1,"last_page":2}`,
		2: `{"data":[{"codigo":12345,"descripcion":"Grasa","stock_actual":"n/a"}],"page":2,"last_page":2}`,
	})
	defer server.Close()

	products, err := newTestClient(t, server.URL).ListProducts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "A1", first.Code)
	assert.Equal(t, "Aceite 1L", first.Description)
	assert.Equal(t, "C1", first.CapacityCode)
	assert.Equal(t, "S", first.StockIndicatorKey)
	assert.True(t, first.StockAvailable.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, first.StockReserved.Equal(decimal.NewFromInt(2)))
	assert.True(t, first.PackQty.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "15/03/2024", first.InclusionDate)
	assert.Equal(t, "/  /", first.ModificationDate)

	second := products[1]
	assert.Equal(t, "12345", second.Code)
	assert.True(t, second.StockAvailable.IsZero())
}

func TestClient_StreamsPages(t *testing.T) {
	server := pagedServer(t, resourcePrices, map[int]string{
		1: `{"data":[{"codigo_articulo":"A1","precio":"100.00","tipo_precio":"1"}],"page":1,"last_page":3}`,
		2: `{"data":[{"codigo_articulo":"B2","precio":"7.5","tipo_precio":"2"}],"page":2,"last_page":3}`,
		3: `{"data":[],"page":3,"last_page":3}`,
	})
	defer server.Close()

	var pages []int
	var codes []string
	fn := func(_ context.Context, page int, records []integration.PriceRecord) error {
		pages = append(pages, page)
		for _, r := range records {
			codes = append(codes, r.ProductCode)
		}
		return nil
	}

	prices, err := newTestClient(t, server.URL).ListPrices(context.Background(), fn)
	require.NoError(t, err)
	assert.Nil(t, prices)
	assert.Equal(t, []int{1, 2}, pages)
	assert.Equal(t, []string{"A1", "B2"}, codes)

	t.Run("callback error stops the listing", func(t *testing.T) {
		calls := 0
		stop := errors.New("stop")
		_, err := newTestClient(t, server.URL).ListPrices(context.Background(),
			func(context.Context, int, []integration.PriceRecord) error {
				calls++
				return stop
			})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}

func TestClient_StopsOnEmptyPage(t *testing.T) {
	server := pagedServer(t, resourceSellers, map[int]string{
		1: `{"data":[{"codigo":"V1","nombre":"Ana"}],"page":1,"last_page":9}`,
		2: `{"data":[],"page":2,"last_page":9}`,
	})
	defer server.Close()

	sellers, err := newTestClient(t, server.URL).ListSellers(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, "Ana", sellers[0].Name)
}

func TestClient_SanitizesInvalidFields(t *testing.T) {
	longCode := fmt.Sprintf("%060d", 7)
	server := pagedServer(t, resourceClients, map[int]string{
		1: `{"data":[
			{"codigo":"C1","nombre":"Acme","email":"not-an-email","rif":"J-1","vendedor":"V1",
			 "calle":"Av. Bolivar","numero":"12","ciudad":"Caracas","provincia":"DC","codigo_postal":"1010"},
			{"codigo":"` + longCode + `","nombre":"Too long"},
			{"nombre":"No code"}],"page":1,"last_page":1}`,
	})
	defer server.Close()

	clients, err := newTestClient(t, server.URL).ListClients(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, clients, 3)

	assert.Equal(t, "C1", clients[0].Code)
	assert.Empty(t, clients[0].Email)
	assert.Equal(t, "V1", clients[0].VendorCode)
	assert.Equal(t, "Caracas", clients[0].City)
	assert.Empty(t, clients[1].Code)
	assert.Empty(t, clients[2].Code)
}

func TestClient_Dictionaries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + resourceGroups:
			_, _ = w.Write([]byte(`{"data":[{"codigo":"G1","descripcion":"Lubricantes"}],"page":1,"last_page":1}`))
		case "/" + resourceCapacities:
			_, _ = w.Write([]byte(`{"data":[{"codigo":"C1","descripcion":"1 litro"}],"page":1,"last_page":1}`))
		case "/" + resourceStockIndicators:
			_, _ = w.Write([]byte(`{"data":[{"clave":"S","descripcion":"Disponible"}],"page":1,"last_page":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	groups, err := client.ListProductGroups(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []integration.GroupRecord{{Code: "G1", Description: "Lubricantes"}}, groups)

	capacities, err := client.ListStockCapacities(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []integration.CapacityRecord{{Code: "C1", Description: "1 litro"}}, capacities)

	indicators, err := client.ListStockIndicators(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []integration.StockIndicatorRecord{{Key: "S", Description: "Disponible"}}, indicators)
}

func TestClient_TruncatesOversizedDescriptions(t *testing.T) {
	long := strings.Repeat("é", 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + resourceGroups:
			_, _ = w.Write([]byte(`{"data":[{"codigo":"G1","descripcion":"` + long + `"}],"page":1,"last_page":1}`))
		case "/" + resourceStockIndicators:
			_, _ = w.Write([]byte(`{"data":[{"clave":"S","descripcion":"` + long + `"}],"page":1,"last_page":1}`))
		case "/" + resourceProducts:
			_, _ = w.Write([]byte(`{"data":[{"codigo":"A1","capacidad":"` + long + `","indicador_stock":"` + long + `"}],"page":1,"last_page":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()
	want := strings.Repeat("é", 255)

	groups, err := client.ListProductGroups(ctx, nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "G1", groups[0].Code)
	assert.Equal(t, want, groups[0].Description)

	indicators, err := client.ListStockIndicators(ctx, nil)
	require.NoError(t, err)
	require.Len(t, indicators, 1)
	assert.Equal(t, want, indicators[0].Description)

	products, err := client.ListProducts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "A1", products[0].Code)
	assert.Equal(t, want, products[0].CapacityCode, "unresolved codes fall back into description columns")
	assert.Equal(t, want, products[0].StockIndicatorKey)
}

func TestClient_DecodesLegacyCharset(t *testing.T) {
	// "Café" in windows-1252
	body := []byte(`{"data":[{"codigo":"G1","descripcion":"Caf` + "\xe9" + `"}],"page":1,"last_page":1}`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=windows-1252")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	groups, err := newTestClient(t, server.URL).ListProductGroups(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Café", groups[0].Description)
}

func TestClient_Errors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).ListProducts(context.Background(), nil)
		assert.ErrorIs(t, err, integration.ErrRemoteRequestFailed)
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).ListProducts(context.Background(), nil)
		assert.ErrorIs(t, err, integration.ErrRemoteInvalidResponse)
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client, err := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil)
		require.NoError(t, err)
		_, err = client.ListProducts(context.Background(), nil)
		assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)
	})

	t.Run("cancelled while rate limited", func(t *testing.T) {
		client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", RateLimitRPS: 0.001}, nil)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = client.ListProducts(ctx, nil)
		assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)
	})
}
