package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/order-engine/internal/domains/carts/domain"
	"github.com/Apurer/order-engine/internal/domains/carts/ports"
	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
)

var _ ports.Repository = (*Repository)(nil)

// Repository stores carts and abandoned-cart records in PostgreSQL.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type cartRecord struct {
	BuyerID   string                 `gorm:"primaryKey;column:buyer_id;size:64"`
	Items     []inventorydomain.Line `gorm:"column:items;type:jsonb;serializer:json"`
	UpdatedAt time.Time              `gorm:"column:updated_at;index"`
}

func (cartRecord) TableName() string { return "carts" }

// abandonedRecord allows at most one open row per buyer through a partial unique index.
type abandonedRecord struct {
	ID          string                 `gorm:"primaryKey;column:id;size:64"`
	BuyerID     string                 `gorm:"column:buyer_id;size:64;uniqueIndex:idx_abandoned_carts_open,where:status = 'open'"`
	Items       []inventorydomain.Line `gorm:"column:items;type:jsonb;serializer:json"`
	Status      string                 `gorm:"column:status;size:16;index"`
	OrderID     string                 `gorm:"column:order_id;size:64"`
	CreatedAt   time.Time              `gorm:"column:created_at"`
	RecoveredAt *time.Time             `gorm:"column:recovered_at"`
}

func (abandonedRecord) TableName() string { return "abandoned_carts" }

// Models lists the tables owned by this adapter for migrations.
func Models() []any { return []any{&cartRecord{}, &abandonedRecord{}} }

func (r *Repository) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rec cartRecord
	if err := r.db.WithContext(ctx).First(&rec, "buyer_id = ?", buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return &domain.Cart{BuyerID: rec.BuyerID, Items: rec.Items, UpdatedAt: rec.UpdatedAt}, nil
}

func (r *Repository) Put(ctx context.Context, cart *domain.Cart) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	rec := cartRecord{BuyerID: cart.BuyerID, Items: cart.Items, UpdatedAt: cart.UpdatedAt}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "buyer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(&rec).Error
}

func (r *Repository) Clear(ctx context.Context, buyerID string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&cartRecord{}, "buyer_id = ?", buyerID).Error
}

func (r *Repository) ListIdle(ctx context.Context, cutoff time.Time) ([]*domain.Cart, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []cartRecord
	err := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where("jsonb_array_length(items) > 0").
		Where("NOT EXISTS (SELECT 1 FROM abandoned_carts a WHERE a.buyer_id = carts.buyer_id AND a.status = ?)", string(domain.AbandonedOpen)).
		Order("buyer_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Cart, 0, len(records))
	for _, rec := range records {
		out = append(out, &domain.Cart{BuyerID: rec.BuyerID, Items: rec.Items, UpdatedAt: rec.UpdatedAt})
	}
	return out, nil
}

func (r *Repository) CreateAbandoned(ctx context.Context, record *domain.AbandonedCart) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	rec := abandonedRecord{
		ID:        record.ID,
		BuyerID:   record.BuyerID,
		Items:     record.Items,
		Status:    string(record.Status),
		CreatedAt: record.CreatedAt,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) MarkRecovered(ctx context.Context, buyerID, orderID string, at time.Time) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&abandonedRecord{}).
		Where("buyer_id = ? AND status = ?", buyerID, string(domain.AbandonedOpen)).
		Updates(map[string]any{
			"status":       string(domain.AbandonedRecovered),
			"order_id":     orderID,
			"recovered_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) ListAbandoned(ctx context.Context, status domain.AbandonedStatus) ([]*domain.AbandonedCart, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var records []abandonedRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.AbandonedCart, 0, len(records))
	for _, rec := range records {
		out = append(out, &domain.AbandonedCart{
			ID:          rec.ID,
			BuyerID:     rec.BuyerID,
			Items:       rec.Items,
			Status:      domain.AbandonedStatus(rec.Status),
			OrderID:     rec.OrderID,
			CreatedAt:   rec.CreatedAt,
			RecoveredAt: rec.RecoveredAt,
		})
	}
	return out, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres repository not initialised")
	}
	return nil
}
