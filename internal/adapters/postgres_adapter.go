package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storageEntry is the relational shape of one key-value snapshot row.
type storageEntry struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

func (storageEntry) TableName() string { return "record_snapshots" }

// PostgresStorage is a StorageAdapter backed by a Postgres table, for
// deployments where the snapshot must outlive the host. GORM rides on top of
// a lib/pq connection and owns the schema via AutoMigrate.
type PostgresStorage struct {
	db *gorm.DB
}

// NewPostgresStorage connects with the given DSN and ensures the snapshot
// table exists.
func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("init gorm: %w", err)
	}
	if err := db.AutoMigrate(&storageEntry{}); err != nil {
		return nil, fmt.Errorf("migrate snapshot table: %w", err)
	}
	return &PostgresStorage{db: db}, nil
}

func (s *PostgresStorage) Read(ctx context.Context, key string) (string, bool, error) {
	var entry storageEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *PostgresStorage) Write(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&storageEntry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}
