package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/order-engine/internal/domains/payments/domain"
	"github.com/Apurer/order-engine/internal/domains/payments/ports"
)

var _ ports.MarkerStore = (*MarkerStore)(nil)

// MarkerStore persists processed payment events; the primary key on event_id
// makes Save an insert-once operation.
type MarkerStore struct {
	db *gorm.DB
}

func NewMarkerStore(db *gorm.DB) *MarkerStore {
	return &MarkerStore{db: db}
}

type processedEventRecord struct {
	EventID     string    `gorm:"primaryKey;column:event_id;size:128"`
	OrderID     string    `gorm:"column:order_id;size:64;index"`
	Outcome     string    `gorm:"column:outcome;size:32"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (processedEventRecord) TableName() string { return "processed_payment_events" }

// Models lists the tables owned by this adapter for migrations.
func Models() []any { return []any{&processedEventRecord{}} }

func (s *MarkerStore) Seen(ctx context.Context, eventID string) (bool, error) {
	if err := s.ensureDB(); err != nil {
		return false, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&processedEventRecord{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MarkerStore) Save(ctx context.Context, marker domain.ProcessedEvent) (bool, error) {
	if err := s.ensureDB(); err != nil {
		return false, err
	}
	rec := processedEventRecord{
		EventID:     marker.EventID,
		OrderID:     marker.OrderID,
		Outcome:     string(marker.Outcome),
		ProcessedAt: marker.ProcessedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *MarkerStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres marker store not configured")
	}
	return nil
}
