package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. Mutations are single
// conditional UPDATE statements; RowsAffected tells whether the guard matched.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate to a relational table.
type orderRecord struct {
	ID                    string            `gorm:"primaryKey;column:id;size:64"`
	BuyerID               string            `gorm:"column:buyer_id;size:128;index"`
	Items                 []domain.LineItem `gorm:"column:items;type:jsonb;serializer:json"`
	Address               domain.Address    `gorm:"column:address;type:jsonb;serializer:json"`
	DeliveryFee           decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(12,2)"`
	Amount                decimal.Decimal   `gorm:"column:amount;type:numeric(12,2)"`
	PaymentMethod         string            `gorm:"column:payment_method;type:varchar(16);index:idx_orders_unpaid,priority:1"`
	Paid                  bool              `gorm:"column:paid;index:idx_orders_unpaid,priority:2"`
	Status                string            `gorm:"column:status;type:varchar(32);index;index:idx_orders_unpaid,priority:3"`
	TrackingNumber        string            `gorm:"column:tracking_number;index"`
	Courier               string            `gorm:"column:courier"`
	TrackingURL           string            `gorm:"column:tracking_url"`
	EstimatedDelivery     *time.Time        `gorm:"column:estimated_delivery"`
	CheckpointTag         string            `gorm:"column:checkpoint_tag"`
	CheckpointMessage     string            `gorm:"column:checkpoint_message"`
	CheckpointLocation    string            `gorm:"column:checkpoint_location"`
	CheckpointAt          *time.Time        `gorm:"column:checkpoint_at"`
	ExternalSessionID     string            `gorm:"column:external_session_id;index"`
	ReconciliationReason  string            `gorm:"column:reconciliation_reason"`
	ReconciliationFlagged *time.Time        `gorm:"column:reconciliation_flagged_at"`
	CreatedAt             time.Time         `gorm:"column:created_at;index;index:idx_orders_unpaid,priority:4"`
	UpdatedAt             time.Time         `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Models lists the tables owned by this adapter for migrations.
func Models() []any { return []any{&orderRecord{}} }

func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	record := toRecord(order)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.find(r.db.WithContext(ctx).Where("buyer_id = ?", buyerID))
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, int64, error) {
	if err := r.ensureDB(); err != nil {
		return nil, 0, err
	}
	q := r.db.WithContext(ctx).Model(&orderRecord{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	orders, err := r.find(q.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize))
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *Repository) ListTrackable(ctx context.Context) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.find(r.db.WithContext(ctx).
		Where("tracking_number <> ''").
		Where("status NOT IN ?", []string{string(domain.StatusDelivered), string(domain.StatusCancelled)}))
}

func (r *Repository) ListUnpaidOnline(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.find(r.db.WithContext(ctx).
		Where("payment_method = ? AND paid = ? AND status = ? AND created_at < ?",
			string(domain.PaymentOnline), false, string(domain.StatusPlaced), cutoff))
}

func (r *Repository) Transition(ctx context.Context, req ports.TransitionRequest) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	q := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status = ?", req.ID, string(req.From))
	if req.RequireUnpaid {
		q = q.Where("paid = ?", false)
	}
	updates := map[string]any{"status": string(req.To), "updated_at": gorm.Expr("NOW()")}
	if req.MarkPaid {
		updates["paid"] = true
	}
	return r.guarded(ctx, req.ID, q.Updates(updates))
}

func (r *Repository) FlagReconciliation(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	flaggedAt := at.UTC()
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND paid = ?", id, false).
		Updates(map[string]any{
			"paid":                      true,
			"reconciliation_reason":     reason,
			"reconciliation_flagged_at": flaggedAt,
			"updated_at":                gorm.Expr("NOW()"),
		})
	return r.guarded(ctx, id, res)
}

func (r *Repository) FlagForReview(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND reconciliation_flagged_at IS NULL", id).
		Updates(map[string]any{
			"reconciliation_reason":     reason,
			"reconciliation_flagged_at": at.UTC(),
			"updated_at":                gorm.Expr("NOW()"),
		})
	return r.guarded(ctx, id, res)
}

func (r *Repository) AssignTracking(ctx context.Context, id string, tracking domain.Tracking) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPacking)).
		Updates(map[string]any{
			"status":          string(domain.StatusShipped),
			"tracking_number": tracking.Number,
			"courier":         tracking.Courier,
			"tracking_url":    tracking.URL,
			"updated_at":      gorm.Expr("NOW()"),
		})
	return r.guarded(ctx, id, res)
}

// ApplyCheckpoint writes only when the stored checkpoint is older, so
// concurrent syncs converge on the latest carrier scan.
func (r *Repository) ApplyCheckpoint(ctx context.Context, update ports.CheckpointUpdate) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	at := update.Checkpoint.At.UTC()
	updates := map[string]any{
		"status":              string(update.To),
		"checkpoint_tag":      update.Checkpoint.Tag,
		"checkpoint_message":  update.Checkpoint.Message,
		"checkpoint_location": update.Checkpoint.Location,
		"checkpoint_at":       at,
		"updated_at":          gorm.Expr("NOW()"),
	}
	if update.EstimatedDelivery != nil {
		updates["estimated_delivery"] = update.EstimatedDelivery.UTC()
	}
	if update.To == domain.StatusDelivered {
		updates["paid"] = gorm.Expr("paid OR payment_method = ?", string(domain.PaymentCOD))
	}
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status = ?", update.ID, string(update.From)).
		Where("checkpoint_at IS NULL OR checkpoint_at < ?", at).
		Updates(updates)
	return r.guarded(ctx, update.ID, res)
}

func (r *Repository) SetEstimatedDelivery(ctx context.Context, id string, eta time.Time) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status NOT IN ?", id, []string{string(domain.StatusDelivered), string(domain.StatusCancelled)}).
		Updates(map[string]any{
			"estimated_delivery": eta.UTC(),
			"updated_at":         gorm.Expr("NOW()"),
		})
	return r.guarded(ctx, id, res)
}

func (r *Repository) SetExternalSession(ctx context.Context, id, sessionID string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).
		Updates(map[string]any{"external_session_id": sessionID, "updated_at": gorm.Expr("NOW()")})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteUnpaid(ctx context.Context, id string) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND paid = ? AND status = ?", id, false, string(domain.StatusCancelled)).
		Delete(&orderRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type statusCount struct {
	Status string
	Count  int64
}

func (r *Repository) Stats(ctx context.Context) (ports.Stats, error) {
	if err := r.ensureDB(); err != nil {
		return ports.Stats{}, err
	}
	db := r.db.WithContext(ctx).Model(&orderRecord{})
	var rows []statusCount
	if err := db.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return ports.Stats{}, err
	}
	stats := ports.Stats{ByStatus: map[domain.Status]int64{}}
	for _, row := range rows {
		stats.ByStatus[domain.Status(row.Status)] = row.Count
		stats.Total += row.Count
	}
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).
		Select("COALESCE(SUM(amount), 0)").Where("paid = ?", true).
		Row().Scan(&stats.PaidRevenue); err != nil {
		return ports.Stats{}, err
	}
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("payment_method = ? AND paid = ? AND status = ?", string(domain.PaymentOnline), false, string(domain.StatusPlaced)).
		Count(&stats.AwaitingPayment).Error; err != nil {
		return ports.Stats{}, err
	}
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("reconciliation_reason <> ''").
		Count(&stats.NeedReconciliation).Error; err != nil {
		return ports.Stats{}, err
	}
	return stats, nil
}

// guarded turns a conditional update into (applied, err), distinguishing a
// missed guard from a missing row.
func (r *Repository) guarded(ctx context.Context, id string, res *gorm.DB) (bool, error) {
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, ports.ErrNotFound
	}
	return false, nil
}

func (r *Repository) find(q *gorm.DB) ([]*domain.Order, error) {
	var records []orderRecord
	if err := q.Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(o *domain.Order) orderRecord {
	rec := orderRecord{
		ID:                o.ID,
		BuyerID:           o.BuyerID,
		Items:             o.Items,
		Address:           o.Address,
		DeliveryFee:       o.DeliveryFee,
		Amount:            o.Amount,
		PaymentMethod:     string(o.PaymentMethod),
		Paid:              o.Paid,
		Status:            string(o.Status),
		TrackingNumber:    o.Tracking.Number,
		Courier:           o.Tracking.Courier,
		TrackingURL:       o.Tracking.URL,
		EstimatedDelivery: o.Tracking.EstimatedDelivery,
		ExternalSessionID: o.ExternalSessionID,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if cp := o.Tracking.LastCheckpoint; cp != nil {
		at := cp.At
		rec.CheckpointTag, rec.CheckpointMessage, rec.CheckpointLocation, rec.CheckpointAt = cp.Tag, cp.Message, cp.Location, &at
	}
	if o.Reconciliation != nil {
		flagged := o.Reconciliation.FlaggedAt
		rec.ReconciliationReason, rec.ReconciliationFlagged = o.Reconciliation.Reason, &flagged
	}
	return rec
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID:            r.ID,
		BuyerID:       r.BuyerID,
		Items:         r.Items,
		Address:       r.Address,
		DeliveryFee:   r.DeliveryFee,
		Amount:        r.Amount,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		Paid:          r.Paid,
		Status:        domain.Status(r.Status),
		Tracking: domain.Tracking{
			Number:            r.TrackingNumber,
			Courier:           r.Courier,
			URL:               r.TrackingURL,
			EstimatedDelivery: r.EstimatedDelivery,
		},
		ExternalSessionID: r.ExternalSessionID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.CheckpointAt != nil {
		order.Tracking.LastCheckpoint = &domain.Checkpoint{
			Tag: r.CheckpointTag, Message: r.CheckpointMessage, Location: r.CheckpointLocation, At: *r.CheckpointAt,
		}
	}
	if r.ReconciliationReason != "" {
		rec := &domain.Reconciliation{Reason: r.ReconciliationReason}
		if r.ReconciliationFlagged != nil {
			rec.FlaggedAt = *r.ReconciliationFlagged
		}
		order.Reconciliation = rec
	}
	return order
}
