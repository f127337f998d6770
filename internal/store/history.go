package store

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"portwatch/internal/adapter"
)

// SnapshotRecord is one committed snapshot in the history table.
type SnapshotRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	CommittedAt time.Time `gorm:"index;not null"`
	Total       string    `gorm:"type:numeric;not null"`
	Assets      string    `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time
}

func (SnapshotRecord) TableName() string {
	return "snapshot_records"
}

// History appends committed snapshots to postgres.
type History struct {
	db *gorm.DB
}

func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

func (repo *History) Name() string {
	return "postgres"
}

func (repo *History) Migrate(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).AutoMigrate(&SnapshotRecord{}); err != nil {
		return errors.Wrap(err, "auto migrate snapshot_records")
	}
	return nil
}

func (repo *History) Save(ctx context.Context, s adapter.Snapshot) error {
	record, err := newSnapshotRecord(s)
	if err != nil {
		return err
	}

	if err := repo.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(err, "insert snapshot record").With("committedAt", s.CommittedAt)
	}

	return nil
}

// Recent returns up to limit snapshots, newest first.
func (repo *History) Recent(ctx context.Context, limit int) ([]adapter.Snapshot, error) {
	var records []SnapshotRecord
	if err := repo.db.WithContext(ctx).
		Order("committed_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "find snapshot records")
	}

	result := make([]adapter.Snapshot, 0, len(records))
	for _, r := range records {
		s, err := r.Snapshot()
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	return result, nil
}

func newSnapshotRecord(s adapter.Snapshot) (SnapshotRecord, error) {
	assets, err := sonic.ConfigFastest.MarshalToString(s.Assets)
	if err != nil {
		return SnapshotRecord{}, errors.Wrap(err, "marshal assets")
	}

	total := decimal.Zero
	if s.Total != nil {
		total = *s.Total
	}

	return SnapshotRecord{
		CommittedAt: s.CommittedAt,
		Total:       total.String(),
		Assets:      assets,
	}, nil
}

// Snapshot decodes the record back into a snapshot.
func (r SnapshotRecord) Snapshot() (adapter.Snapshot, error) {
	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		return adapter.Snapshot{}, errors.Wrap(err, "parse total").With("id", r.ID)
	}

	var assets []adapter.Asset
	if err := sonic.ConfigFastest.UnmarshalFromString(r.Assets, &assets); err != nil {
		return adapter.Snapshot{}, errors.Wrap(err, "unmarshal assets").With("id", r.ID)
	}

	return adapter.Snapshot{Assets: assets, Total: &total, CommittedAt: r.CommittedAt}, nil
}
