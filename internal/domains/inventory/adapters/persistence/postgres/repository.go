package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/domains/inventory/ports"
)

var _ ports.StockRepository = (*Repository)(nil)

// Repository persists product stock in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed stock repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// productRecord maps catalog stock to a relational table. The check constraint
// is the last line of defence for the non-negative invariant.
type productRecord struct {
	ID        string          `gorm:"primaryKey;column:id;size:64"`
	Name      string          `gorm:"column:name"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int             `gorm:"column:stock;check:chk_products_stock_non_negative,stock >= 0"`
	Sizes     pq.StringArray  `gorm:"column:sizes;type:text[]"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Models lists the tables owned by this adapter for migrations.
func Models() []any { return []any{&productRecord{}} }

type adjustmentRow struct {
	ID       string
	Quantity int
}

const decrementSQL = `UPDATE products AS p
SET stock = p.stock - v.qty, updated_at = NOW()
FROM unnest(?::text[], ?::bigint[]) AS v(id, qty)
WHERE p.id = v.id AND p.stock >= v.qty
RETURNING p.id AS id, v.qty AS quantity`

const incrementSQL = `UPDATE products AS p
SET stock = p.stock + v.qty, updated_at = NOW()
FROM unnest(?::text[], ?::bigint[]) AS v(id, qty)
WHERE p.id = v.id
RETURNING p.id AS id, v.qty AS quantity`

func (r *Repository) GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*domain.Product, len(records))
	for i := range records {
		out[records[i].ID] = records[i].toDomain()
	}
	return out, nil
}

// DecrementIfAvailable issues a single guarded UPDATE for all adjustments.
func (r *Repository) DecrementIfAvailable(ctx context.Context, adjustments []domain.Adjustment) ([]domain.Adjustment, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	ids, qtys := toArrays(adjustments)
	var rows []adjustmentRow
	if err := r.db.WithContext(ctx).Raw(decrementSQL, ids, qtys).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *Repository) Increment(ctx context.Context, adjustments []domain.Adjustment) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	ids, qtys := toArrays(adjustments)
	// An unknown id rolls the whole increment back.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []adjustmentRow
		if err := tx.Raw(incrementSQL, ids, qtys).Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) != len(adjustments) {
			return ports.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) Upsert(ctx context.Context, product *domain.Product) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if product == nil {
		return errors.New("product is nil")
	}
	record := toRecord(product)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":       record.Name,
				"price":      record.Price,
				"stock":      record.Stock,
				"sizes":      record.Sizes,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres stock repository not configured")
	}
	return nil
}

func toArrays(adjustments []domain.Adjustment) (pq.StringArray, pq.Int64Array) {
	ids := make(pq.StringArray, 0, len(adjustments))
	qtys := make(pq.Int64Array, 0, len(adjustments))
	for _, adj := range adjustments {
		ids = append(ids, adj.ProductID)
		qtys = append(qtys, int64(adj.Quantity))
	}
	return ids, qtys
}

func fromRows(rows []adjustmentRow) []domain.Adjustment {
	out := make([]domain.Adjustment, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Adjustment{ProductID: row.ID, Quantity: row.Quantity})
	}
	return out
}

func toRecord(p *domain.Product) productRecord {
	return productRecord{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Stock: p.Stock,
		Sizes: pq.StringArray(p.Sizes),
	}
}

func (r productRecord) toDomain() *domain.Product {
	return &domain.Product{
		ID:    r.ID,
		Name:  r.Name,
		Price: r.Price,
		Stock: r.Stock,
		Sizes: append([]string(nil), r.Sizes...),
	}
}
