// Package datastore persists disk-usage snapshots in SQLite so a restart
// starts from the last committed pass instead of an empty view.
package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/dusnap/internal/errors"
	"github.com/tphakala/dusnap/internal/usage"
)

// DirectoryRecord is a persisted directory measurement. Position preserves
// the snapshot's insertion order across a reload.
type DirectoryRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Position    int    `gorm:"index"`
	DisplayName string `gorm:"type:text"`
	Path        string `gorm:"type:text;index"`
	SizeKB      int64  // -1 when unknown
}

// JobRecord is a persisted job measurement.
type JobRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Position    int    `gorm:"index"`
	FullName    string `gorm:"type:text;index"`
	DisplayName string `gorm:"type:text"`
	Path        string `gorm:"type:text"`
	SizeKB      int64  // -1 when unknown
}

// SnapshotState is the single-row pass bookkeeping record.
type SnapshotState struct {
	ID           uint `gorm:"primaryKey"`
	LastRunStart time.Time
	LastRunEnd   time.Time
}

// SQLiteStore persists snapshots in a SQLite database via GORM.
type SQLiteStore struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open opens (and migrates) the SQLite database at path.
func Open(path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("path", path).
			Build()
	}

	if err := db.AutoMigrate(&DirectoryRecord{}, &JobRecord{}, &SnapshotState{}); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto-migrate").
			Build()
	}

	return &SQLiteStore{db: db, log: log}, nil
}

// Load reads the persisted snapshot. A database that has never been saved to
// yields an empty snapshot and no error.
func (s *SQLiteStore) Load() (*usage.Snapshot, error) {
	snap := &usage.Snapshot{}

	var state SnapshotState
	err := s.db.First(&state).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("loading snapshot state: %w", err)
	}
	snap.LastRunStart = state.LastRunStart
	snap.LastRunEnd = state.LastRunEnd

	var dirRecords []DirectoryRecord
	if err := s.db.Order("position").Find(&dirRecords).Error; err != nil {
		return nil, fmt.Errorf("loading directory records: %w", err)
	}
	for _, rec := range dirRecords {
		snap.Directories = append(snap.Directories, usage.DirectoryItem{
			DisplayName: rec.DisplayName,
			Path:        rec.Path,
			Size:        usage.SizeFromKB(rec.SizeKB),
		})
	}

	var jobRecords []JobRecord
	if err := s.db.Order("position").Find(&jobRecords).Error; err != nil {
		return nil, fmt.Errorf("loading job records: %w", err)
	}
	for _, rec := range jobRecords {
		snap.Jobs = append(snap.Jobs, usage.JobItem{
			FullName:    rec.FullName,
			DisplayName: rec.DisplayName,
			Path:        rec.Path,
			Size:        usage.SizeFromKB(rec.SizeKB),
		})
	}

	return snap, nil
}

// Save replaces the persisted snapshot with the given one in a single
// transaction.
func (s *SQLiteStore) Save(snap *usage.Snapshot) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&DirectoryRecord{}, &JobRecord{}, &SnapshotState{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("clearing previous snapshot: %w", err)
			}
		}

		for i, item := range snap.Directories {
			rec := DirectoryRecord{
				Position:    i,
				DisplayName: item.DisplayName,
				Path:        item.Path,
				SizeKB:      item.Size.SentinelKB(),
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("saving directory record: %w", err)
			}
		}

		for i, item := range snap.Jobs {
			rec := JobRecord{
				Position:    i,
				FullName:    item.FullName,
				DisplayName: item.DisplayName,
				Path:        item.Path,
				SizeKB:      item.Size.SentinelKB(),
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("saving job record: %w", err)
			}
		}

		state := SnapshotState{
			LastRunStart: snap.LastRunStart,
			LastRunEnd:   snap.LastRunEnd,
		}
		if err := tx.Create(&state).Error; err != nil {
			return fmt.Errorf("saving snapshot state: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
