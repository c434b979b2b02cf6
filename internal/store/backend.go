// Package store persists products, saved configurations and debug logs.
//
// Every collection is one JSON array stored under a single key, capped at a
// fixed length with oldest-first eviction. Backends only move bytes: the
// SQL backend keeps one row per key in a storage_entries table, and the
// memory backend backs tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a key or item does not exist.
var ErrNotFound = errors.New("not found")

// Backend stores opaque values by key.
type Backend interface {
	// Load returns ErrNotFound when key has never been saved.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// entry is one row of storage_entries.
type entry struct {
	Key       string `gorm:"column:storage_key;primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "storage_entries" }

// SQLBackend is a Backend over gorm. Open uses the pure-Go sqlite driver.
type SQLBackend struct {
	db *gorm.DB
}

// OpenOptions tunes Open.
type OpenOptions struct {
	Attempts uint
	Delay    time.Duration
	Logger   *slog.Logger
}

// Open opens (creating if needed) the sqlite database at path and migrates
// it. A busy or locked file is retried. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string, opts OpenOptions) (*SQLBackend, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 5
	}
	if opts.Delay == 0 {
		opts.Delay = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var db *gorm.DB
	err := retry.Do(
		func() error {
			conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			if err != nil {
				return err
			}
			if err := conn.WithContext(ctx).AutoMigrate(&entry{}); err != nil {
				if sqlDB, dbErr := conn.DB(); dbErr == nil {
					_ = sqlDB.Close()
				}
				return err
			}
			db = conn
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database open failed, retrying", "path", path, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return &SQLBackend{db: db}, nil
}

// NewSQLBackend wraps an already-migrated gorm handle.
func NewSQLBackend(db *gorm.DB) (*SQLBackend, error) {
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate storage_entries: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var e entry
	err := b.db.WithContext(ctx).Where("storage_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return []byte(e.Value), nil
}

func (b *SQLBackend) Save(ctx context.Context, key string, data []byte) error {
	e := entry{Key: key, Value: string(data), UpdatedAt: time.Now()}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	if err := b.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MemoryBackend keeps values in a map.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return nil }

var (
	_ Backend = (*SQLBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
)
