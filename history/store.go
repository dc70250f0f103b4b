package history

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Record is one terminal preset job
type Record struct {
	ID         uint   `gorm:"primaryKey"`
	JobID      string `gorm:"index"`
	PresetID   string `gorm:"index"`
	Status     string
	Error      string
	FileCount  int
	BytesTotal int64
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Store wraps the sqlite-backed job history log
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the history database at path and migrates
// the schema
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append adds one terminal job record to the log
func (s *Store) Append(rec *Record) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Recent returns the most recent n records, newest first
func (s *Store) Recent(n int) ([]Record, error) {
	var recs []Record
	if err := s.db.Order("id DESC").Limit(n).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return recs, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
