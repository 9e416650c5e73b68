package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// maxResponseSize bounds a single page body
const maxResponseSize = 64 << 20

// Resource paths of the catalog API
const (
	resourceProducts        = "articulos"
	resourcePrices          = "precios"
	resourceClients         = "clientes"
	resourceSellers         = "vendedores"
	resourceGroups          = "grupos"
	resourceCapacities      = "capacidades"
	resourceStockIndicators = "indicadores-stock"
)

// Client implements integration.RemoteCatalog over the ERP's paged JSON API
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewClient creates an ERP catalog client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if config.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.RateLimitBurst)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("erp"),
	}, nil
}

// ListProducts lists the article catalog
func (c *Client) ListProducts(ctx context.Context, fn integration.PageFunc[integration.ProductRecord]) ([]integration.ProductRecord, error) {
	return listAll(ctx, c, resourceProducts, (*wireProduct).record, fn)
}

// ListPrices lists the current price of every article
func (c *Client) ListPrices(ctx context.Context, fn integration.PageFunc[integration.PriceRecord]) ([]integration.PriceRecord, error) {
	return listAll(ctx, c, resourcePrices, (*wirePrice).record, fn)
}

// ListClients lists customer accounts
func (c *Client) ListClients(ctx context.Context, fn integration.PageFunc[integration.ClientRecord]) ([]integration.ClientRecord, error) {
	return listAll(ctx, c, resourceClients, (*wireClient).record, fn)
}

// ListSellers lists the vendor directory
func (c *Client) ListSellers(ctx context.Context, fn integration.PageFunc[integration.SellerRecord]) ([]integration.SellerRecord, error) {
	return listAll(ctx, c, resourceSellers, (*wireSeller).record, fn)
}

// ListProductGroups lists the product group dictionary
func (c *Client) ListProductGroups(ctx context.Context, fn integration.PageFunc[integration.GroupRecord]) ([]integration.GroupRecord, error) {
	return listAll(ctx, c, resourceGroups, (*wireDictionaryEntry).group, fn)
}

// ListStockCapacities lists the unit capacity dictionary
func (c *Client) ListStockCapacities(ctx context.Context, fn integration.PageFunc[integration.CapacityRecord]) ([]integration.CapacityRecord, error) {
	return listAll(ctx, c, resourceCapacities, (*wireDictionaryEntry).capacity, fn)
}

// ListStockIndicators lists the stock indicator dictionary
func (c *Client) ListStockIndicators(ctx context.Context, fn integration.PageFunc[integration.StockIndicatorRecord]) ([]integration.StockIndicatorRecord, error) {
	return listAll(ctx, c, resourceStockIndicators, (*wireStockIndicator).record, fn)
}

// listAll walks the pages of a resource until the last page or an empty one.
// Each wire record is validated and converted before it reaches the caller.
func listAll[W any, R any, PW interface {
	*W
	sanitizable
}](ctx context.Context, c *Client, resource string, convert func(PW) R, fn integration.PageFunc[R]) ([]R, error) {
	var all []R
	for page := 1; ; page++ {
		var body pageResponse[W]
		if err := c.fetchPage(ctx, resource, page, &body); err != nil {
			return nil, err
		}

		records := make([]R, len(body.Data))
		for i := range body.Data {
			wire := PW(&body.Data[i])
			c.sanitize(resource, wire)
			records[i] = convert(wire)
		}

		c.logger.Debug("Fetched ERP page",
			zap.String("resource", resource),
			zap.Int("page", page),
			zap.Int("last_page", body.LastPage),
			zap.Int("count", len(records)),
		)

		if len(records) > 0 {
			if fn != nil {
				if err := fn(ctx, page, records); err != nil {
					return nil, err
				}
			} else {
				all = append(all, records...)
			}
		}

		if len(records) == 0 || page >= body.LastPage {
			return all, nil
		}
	}
}

// sanitize clears the fields of a record that fail validation.
// A record whose key is invalid keeps a blank key so the synchronizers skip it.
func (c *Client) sanitize(resource string, rec sanitizable) {
	err := c.validate.Struct(rec)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		c.logger.Debug("Dropping invalid ERP field",
			zap.String("resource", resource),
			zap.String("field", fe.Field()),
			zap.String("rule", fe.Tag()),
		)
		rec.clearField(fe.StructField())
	}
}

// fetchPage performs one GET and decodes the envelope into out
func (c *Client) fetchPage(ctx context.Context, resource string, page int, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", integration.ErrRemoteUnavailable, err)
		}
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(c.config.PageSize))
	endpoint := c.config.BaseURL + "/" + resource + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("erp: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrRemoteUnavailable, resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s page %d: HTTP %d", integration.ErrRemoteRequestFailed, resource, page, resp.StatusCode)
	}

	reader, err := c.bodyReader(resp)
	if err != nil {
		return err
	}
	if err := json.NewDecoder(reader).Decode(out); err != nil {
		return fmt.Errorf("%w: %s page %d: %v", integration.ErrRemoteInvalidResponse, resource, page, err)
	}
	return nil
}

// bodyReader decodes the body to UTF-8 using the declared charset, falling
// back to the configured one.
func (c *Client) bodyReader(resp *http.Response) (io.Reader, error) {
	body := io.LimitReader(resp.Body, maxResponseSize)

	charset := c.config.Charset
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && params["charset"] != "" {
		charset = params["charset"]
	}
	decoder, err := charsetDecoder(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteInvalidResponse, err)
	}
	if decoder == nil {
		return body, nil
	}
	return transform.NewReader(body, decoder), nil
}

// Ensure Client implements RemoteCatalog
var _ integration.RemoteCatalog = (*Client)(nil)
