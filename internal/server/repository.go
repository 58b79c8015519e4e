package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/paysplit/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultProfile is used when a request does not name a profile.
const DefaultProfile = "default"

// ErrStaleVersion is returned by Put when a newer version is already stored.
var ErrStaleVersion = errors.New("stored settings are newer")

// SettingsRecord is the stored form of one profile's settings.
type SettingsRecord struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Profile   string `gorm:"uniqueIndex;not null"`
	Payload   string `gorm:"type:text;not null"`
	ID        uint   `gorm:"primaryKey"`
	Version   int64  `gorm:"not null;default:0"`
}

// Repository stores settings per profile.
type Repository struct {
	db *gorm.DB
}

// OpenRepository opens the SQLite database at path and migrates it.
func OpenRepository(path string) (*Repository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&SettingsRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate settings database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Get returns the stored settings for profile, or empty settings when none
// have been stored.
func (r *Repository) Get(ctx context.Context, profile string) (model.Settings, error) {
	var rec SettingsRecord
	err := r.db.WithContext(ctx).Where("profile = ?", profile).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Settings{}, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to load settings for %s: %w", profile, err)
	}
	return decodeRecord(rec)
}

// Put stores s for profile. A versioned write must be newer than the stored
// version. An unversioned write (version 0) always succeeds and keeps the
// stored version. Put returns the version now stored.
func (r *Repository) Put(ctx context.Context, profile string, s model.Settings) (int64, error) {
	var stored int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec SettingsRecord
		err := tx.Where("profile = ?", profile).Take(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = SettingsRecord{Profile: profile}
		case err != nil:
			return err
		}

		if s.Version != 0 && s.Version <= rec.Version {
			stored = rec.Version
			return fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, rec.Version, s.Version)
		}
		if s.Version != 0 {
			rec.Version = s.Version
		}

		s.Version = rec.Version
		payload, err := json.Marshal(s)
		if err != nil {
			return err
		}
		rec.Payload = string(payload)
		stored = rec.Version
		return tx.Save(&rec).Error
	})
	if err != nil && !errors.Is(err, ErrStaleVersion) {
		return 0, fmt.Errorf("failed to store settings for %s: %w", profile, err)
	}
	return stored, err
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decodeRecord(rec SettingsRecord) (model.Settings, error) {
	var s model.Settings
	if err := json.Unmarshal([]byte(rec.Payload), &s); err != nil {
		return model.Settings{}, fmt.Errorf("stored settings for %s are corrupt: %w", rec.Profile, err)
	}
	s.Version = rec.Version
	return s, nil
}
