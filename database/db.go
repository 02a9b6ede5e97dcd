// Package database persists per-browser view state in sqlite.
package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ViewStateEntry is one advisory key/value pair owned by a browser.
type ViewStateEntry struct {
	ClientID  string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:255"`
	UpdatedAt time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&ViewStateEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("database connected", zap.String("dsn", dsn))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the stored value for (clientID, key).
func (s *Store) Get(clientID, key string) (string, bool, error) {
	var entry ViewStateEntry
	err := s.db.Where("client_id = ? AND name = ?", clientID, key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set upserts the value for (clientID, key).
func (s *Store) Set(clientID, key, value string) error {
	entry := ViewStateEntry{ClientID: clientID, Name: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// ForClient scopes the store to one browser.
func (s *Store) ForClient(clientID string) *ClientStorage {
	return &ClientStorage{store: s, clientID: clientID}
}

// ClientStorage is the key-value view of a single client's entries. Read
// failures are logged and reported as missing so callers fall back to
// defaults.
type ClientStorage struct {
	store    *Store
	clientID string
}

func (c *ClientStorage) Get(key string) (string, bool) {
	value, ok, err := c.store.Get(c.clientID, key)
	if err != nil {
		c.store.log.Warn("view state read failed",
			zap.String("client_id", c.clientID), zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, ok
}

func (c *ClientStorage) Set(key, value string) error {
	if err := c.store.Set(c.clientID, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
