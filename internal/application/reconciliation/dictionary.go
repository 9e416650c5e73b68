package reconciliation

import (
	"context"
	"strings"

	"github.com/b2bportal/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// Dictionary maps a trimmed natural key to its remote record
type Dictionary[T any] map[string]T

// BuildDictionary indexes records by key. Blank keys are skipped and a
// repeated key keeps the last record.
func BuildDictionary[T any](records []T, key func(T) string) Dictionary[T] {
	d := make(Dictionary[T], len(records))
	d.add(records, key)
	return d
}

func (d Dictionary[T]) add(records []T, key func(T) string) {
	for _, rec := range records {
		k := strings.TrimSpace(key(rec))
		if k == "" {
			continue
		}
		d[k] = rec
	}
}

// Lookup finds the record for code, ignoring surrounding spaces
func (d Dictionary[T]) Lookup(code string) (T, bool) {
	rec, ok := d[strings.TrimSpace(code)]
	return rec, ok
}

// Describe returns the dictionary description of code, falling back to the
// raw trimmed code when there is no entry or the entry has no description.
func Describe[T any](d Dictionary[T], code string, describe func(T) string) string {
	code = strings.TrimSpace(code)
	if rec, ok := d.Lookup(code); ok {
		if desc := strings.TrimSpace(describe(rec)); desc != "" {
			return desc
		}
	}
	return code
}

// ProductDictionaries holds the lookups used to denormalize one product sync.
// It lives for a single invocation and is never cached across runs.
type ProductDictionaries struct {
	Groups          Dictionary[integration.GroupRecord]
	Capacities      Dictionary[integration.CapacityRecord]
	StockIndicators Dictionary[integration.StockIndicatorRecord]
}

// GroupDescription resolves a product group code
func (d *ProductDictionaries) GroupDescription(code string) string {
	return Describe(d.Groups, code, func(r integration.GroupRecord) string { return r.Description })
}

// CapacityDescription resolves a unit capacity code
func (d *ProductDictionaries) CapacityDescription(code string) string {
	return Describe(d.Capacities, code, func(r integration.CapacityRecord) string { return r.Description })
}

// StockIndicatorDescription resolves a stock indicator key
func (d *ProductDictionaries) StockIndicatorDescription(key string) string {
	return Describe(d.StockIndicators, key, func(r integration.StockIndicatorRecord) string { return r.Description })
}

// DictionaryResolver fetches the product dictionaries from the ERP
type DictionaryResolver struct {
	remote integration.RemoteCatalog
	logger *zap.Logger
}

// NewDictionaryResolver creates a resolver
func NewDictionaryResolver(remote integration.RemoteCatalog, logger *zap.Logger) *DictionaryResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DictionaryResolver{remote: remote, logger: logger}
}

// Resolve builds the three dictionaries. A failed fetch yields an empty
// dictionary and a warning; descriptions then fall back to raw codes.
func (r *DictionaryResolver) Resolve(ctx context.Context) *ProductDictionaries {
	return &ProductDictionaries{
		Groups: resolveDictionary(ctx, r.logger, "product_groups", r.remote.ListProductGroups,
			func(g integration.GroupRecord) string { return g.Code }),
		Capacities: resolveDictionary(ctx, r.logger, "stock_capacities", r.remote.ListStockCapacities,
			func(c integration.CapacityRecord) string { return c.Code }),
		StockIndicators: resolveDictionary(ctx, r.logger, "stock_indicators", r.remote.ListStockIndicators,
			func(s integration.StockIndicatorRecord) string { return s.Key }),
	}
}

// resolveDictionary streams the listing page by page so the full remote
// list is never buffered alongside the map.
func resolveDictionary[T any](
	ctx context.Context,
	logger *zap.Logger,
	name string,
	list func(context.Context, integration.PageFunc[T]) ([]T, error),
	key func(T) string,
) Dictionary[T] {
	d := make(Dictionary[T])
	_, err := list(ctx, func(_ context.Context, _ int, page []T) error {
		d.add(page, key)
		return nil
	})
	if err != nil {
		logger.Warn("Dictionary fetch failed, falling back to raw codes",
			zap.String("dictionary", name),
			zap.Error(err))
		return make(Dictionary[T])
	}
	logger.Debug("Dictionary resolved",
		zap.String("dictionary", name),
		zap.Int("entries", len(d)))
	return d
}
