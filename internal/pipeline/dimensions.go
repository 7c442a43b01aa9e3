package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/aggregation"
	"github.com/aevon-lab/clickstream/internal/core/storage"
	"github.com/aevon-lab/clickstream/internal/ingest"
)

const defaultDimensionBatchSize = 1000

// ChunkSource yields the input in bounded chunks, always from the beginning.
type ChunkSource interface {
	Chunks(ctx context.Context, size int, fn func(ingest.Chunk) error) error
}

type productAcc struct {
	category *string
	brand    *string
	price    aggregation.Mean
}

// DimensionAccumulator folds event batches into the four dimension mappings.
// Memory grows with the number of distinct entities, not with rows.
type DimensionAccumulator struct {
	brands     map[string]struct{}
	categories map[string]v1.Category
	users      map[int64]*v1.UserExtremes
	products   map[int64]*productAcc
	rows       int64
}

// NewDimensionAccumulator returns an empty accumulator.
func NewDimensionAccumulator() *DimensionAccumulator {
	return &DimensionAccumulator{
		brands:     make(map[string]struct{}),
		categories: make(map[string]v1.Category),
		users:      make(map[int64]*v1.UserExtremes),
		products:   make(map[int64]*productAcc),
	}
}

// Add folds one batch. Batches must arrive in source order: a product keeps
// the first category and brand it was observed with.
func (a *DimensionAccumulator) Add(events []v1.RawEvent) {
	for i := range events {
		e := &events[i]
		a.rows++

		if e.Brand != nil {
			a.brands[*e.Brand] = struct{}{}
		}
		if e.CategoryCode != nil {
			if _, ok := a.categories[*e.CategoryCode]; !ok {
				a.categories[*e.CategoryCode] = v1.SplitCategoryCode(*e.CategoryCode)
			}
		}

		u, ok := a.users[e.UserID]
		if !ok {
			u = &v1.UserExtremes{UserID: e.UserID}
			a.users[e.UserID] = u
		}
		u.Observe(e.EventTime)

		p, ok := a.products[e.ProductID]
		if !ok {
			p = &productAcc{}
			a.products[e.ProductID] = p
		}
		if p.category == nil && e.CategoryCode != nil {
			p.category = e.CategoryCode
		}
		if p.brand == nil && e.Brand != nil {
			p.brand = e.Brand
		}
		if e.Price != nil {
			p.price.Add(*e.Price)
		}
	}
}

// Rows is the number of events folded so far.
func (a *DimensionAccumulator) Rows() int64 {
	return a.rows
}

// Dimensions returns the accumulated mappings sorted by natural key.
func (a *DimensionAccumulator) Dimensions() v1.Dimensions {
	dims := v1.Dimensions{
		Brands:     make([]string, 0, len(a.brands)),
		Categories: make([]v1.Category, 0, len(a.categories)),
		Users:      make([]v1.UserExtremes, 0, len(a.users)),
		Products:   make([]v1.ProductProfile, 0, len(a.products)),
	}

	for b := range a.brands {
		dims.Brands = append(dims.Brands, b)
	}
	sort.Strings(dims.Brands)

	for _, c := range a.categories {
		dims.Categories = append(dims.Categories, c)
	}
	sort.Slice(dims.Categories, func(i, j int) bool { return dims.Categories[i].Code < dims.Categories[j].Code })

	for _, u := range a.users {
		dims.Users = append(dims.Users, *u)
	}
	sort.Slice(dims.Users, func(i, j int) bool { return dims.Users[i].UserID < dims.Users[j].UserID })

	for id, p := range a.products {
		profile := v1.ProductProfile{ProductID: id, CategoryCode: p.category, Brand: p.brand}
		if mean, ok := p.price.Value(); ok {
			profile.Price = &mean
		}
		dims.Products = append(dims.Products, profile)
	}
	sort.Slice(dims.Products, func(i, j int) bool { return dims.Products[i].ProductID < dims.Products[j].ProductID })

	return dims
}

// DimensionExtractor scans the source once and returns the dimension mappings.
// It never writes to the store.
type DimensionExtractor struct {
	src       ChunkSource
	chunkSize int
}

// NewDimensionExtractor creates an extractor reading chunkSize records at a time.
func NewDimensionExtractor(src ChunkSource, chunkSize int) *DimensionExtractor {
	return &DimensionExtractor{src: src, chunkSize: chunkSize}
}

// Extract runs the scan.
func (x *DimensionExtractor) Extract(ctx context.Context) (v1.Dimensions, error) {
	acc := NewDimensionAccumulator()
	chunks := 0

	slog.Info("[Dimensions] Extracting dimensions from source", "chunk_size", x.chunkSize)

	err := x.src.Chunks(ctx, x.chunkSize, func(c ingest.Chunk) error {
		events, err := c.Events()
		if err != nil {
			return err
		}
		acc.Add(events)
		chunks++
		slog.Debug("[Dimensions] Chunk scanned", "file", c.File, "rows", len(events), "total_rows", acc.Rows())
		return nil
	})
	if err != nil {
		return v1.Dimensions{}, fmt.Errorf("extract dimensions: %w", err)
	}

	dims := acc.Dimensions()
	slog.Info("[Dimensions] Extraction complete",
		"rows", acc.Rows(),
		"chunks", chunks,
		"brands", len(dims.Brands),
		"categories", len(dims.Categories),
		"users", len(dims.Users),
		"products", len(dims.Products))
	return dims, nil
}

// DimensionLoader replaces the dimension tables with extracted mappings.
type DimensionLoader struct {
	store     storage.DimensionStore
	batchSize int
}

// NewDimensionLoader creates a loader inserting batchSize rows per statement.
func NewDimensionLoader(store storage.DimensionStore, batchSize int) *DimensionLoader {
	if batchSize <= 0 {
		batchSize = defaultDimensionBatchSize
	}
	return &DimensionLoader{store: store, batchSize: batchSize}
}

// Load writes dims with replace semantics.
func (l *DimensionLoader) Load(ctx context.Context, dims v1.Dimensions) (storage.DimensionCounts, error) {
	counts, err := l.store.ReplaceDimensions(ctx, dims, l.batchSize)
	if err != nil {
		return storage.DimensionCounts{}, fmt.Errorf("load dimensions: %w", err)
	}
	return counts, nil
}
