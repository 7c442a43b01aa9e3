package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/storage"
)

// DimensionAdapter implements storage.DimensionStore.
type DimensionAdapter struct {
	pool *Pool
}

// NewDimensionAdapter creates a dimension adapter sharing the given pool.
func NewDimensionAdapter(pool *Pool) *DimensionAdapter {
	return &DimensionAdapter{pool: pool}
}

// ReplaceDimensions truncates the dimension tables and loads dims in one
// transaction: readers see either the previous dimensions or the new ones.
// Users and products are loaded with zeroed counters; the aggregate stage fills them.
func (a *DimensionAdapter) ReplaceDimensions(ctx context.Context, dims v1.Dimensions, batchSize int) (storage.DimensionCounts, error) {
	var counts storage.DimensionCounts

	err := a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryTruncateDimensions); err != nil {
			return fmt.Errorf("truncate dimensions: %w", err)
		}

		n, err := insertBatches(ctx, tx, queryInsertBrandsPrefix, "", len(dims.Brands), 1, batchSize,
			func(i int) []any { return []any{dims.Brands[i]} })
		if err != nil {
			return fmt.Errorf("insert brands: %w", err)
		}
		counts.Brands = n

		brandIDs, err := loadIDs(ctx, tx, querySelectBrandIDs)
		if err != nil {
			return fmt.Errorf("load brand ids: %w", err)
		}

		categories := make([]v1.Category, 0, len(dims.Categories))
		for _, c := range dims.Categories {
			if !c.IsNull() {
				categories = append(categories, c)
			}
		}
		n, err = insertBatches(ctx, tx, queryInsertCategoriesPrefix, "", len(categories), 4, batchSize,
			func(i int) []any {
				c := categories[i]
				return []any{c.Code, nullString(c.Level1), nullString(c.Level2), nullString(c.Level3)}
			})
		if err != nil {
			return fmt.Errorf("insert categories: %w", err)
		}

		categoryIDs, err := loadIDs(ctx, tx, querySelectCategoryIDs)
		if err != nil {
			return fmt.Errorf("load category ids: %w", err)
		}

		var nullCategoryID int64
		if err := tx.QueryRowContext(ctx, queryInsertNullCategory).Scan(&nullCategoryID); err != nil {
			return fmt.Errorf("insert null category: %w", err)
		}
		counts.Categories = n + 1

		n, err = insertBatches(ctx, tx, queryInsertUsersPrefix, "", len(dims.Users), 6, batchSize,
			func(i int) []any {
				u := dims.Users[i]
				return []any{u.UserID, nullTime(u.FirstSeen), nullTime(u.LastSeen), 0, 0, 0}
			})
		if err != nil {
			return fmt.Errorf("insert users: %w", err)
		}
		counts.Users = n

		n, err = insertBatches(ctx, tx, queryInsertProductsPrefix, "", len(dims.Products), 7, batchSize,
			func(i int) []any {
				p := dims.Products[i]
				categoryID := nullCategoryID
				if p.CategoryCode != nil {
					if id, ok := categoryIDs[*p.CategoryCode]; ok {
						categoryID = id
					}
				}
				var brandID any
				if p.Brand != nil {
					if id, ok := brandIDs[*p.Brand]; ok {
						brandID = id
					}
				}
				return []any{p.ProductID, categoryID, brandID, nullDecimal(p.Price), 0, 0, 0}
			})
		if err != nil {
			return fmt.Errorf("insert products: %w", err)
		}
		counts.Products = n
		return nil
	})
	if err != nil {
		return storage.DimensionCounts{}, err
	}

	slog.Info("[Dimensions] Replaced dimension tables",
		"brands", counts.Brands,
		"categories", counts.Categories,
		"users", counts.Users,
		"products", counts.Products)
	return counts, nil
}

// loadIDs reads (id, name) pairs into a name -> id map.
func loadIDs(ctx context.Context, tx *sql.Tx, query string) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ids, nil
}
