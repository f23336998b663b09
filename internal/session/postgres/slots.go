package postgres

import (
	"context"
	"time"

	sessionDatamodel "github.com/frahmantamala/asubt-console/internal/core/datamodel/session"
	"github.com/frahmantamala/asubt-console/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SlotRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSlotRepository(db *gorm.DB) session.SlotRepository {
	return &SlotRepository{db: db, now: time.Now}
}

func (r *SlotRepository) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	var rows []sessionDatamodel.Slot
	if err := r.db.WithContext(ctx).Where("slot_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Save upserts all slots in one transaction.
func (r *SlotRepository) Save(ctx context.Context, slots map[string]string) error {
	if len(slots) == 0 {
		return nil
	}

	now := r.now().UTC()
	rows := make([]sessionDatamodel.Slot, 0, len(slots))
	for k, v := range slots {
		rows = append(rows, sessionDatamodel.Slot{Key: k, Value: v, UpdatedAt: now})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"slot_value", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (r *SlotRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("slot_key IN ?", keys).Delete(&sessionDatamodel.Slot{}).Error
}
