package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// ErrNotFound is returned when a record looked up by id does not exist
var ErrNotFound = errors.New("record not found")

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalShifts  int    `gorm:"default:0" json:"total_shifts"`
	TotalStaff   int    `gorm:"default:0" json:"total_staff"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Options selects the database backend. A non-empty URL selects postgres, otherwise
// the sqlite file at Path is used.
type Options struct {
	URL      string
	Path     string
	LogLevel logger.LogLevel
}

// InitDB opens the database connection and migrates the schema
func InitDB(opts Options) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	if opts.URL != "" {
		cfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.URL,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		path := opts.Path
		if path == "" {
			path = "scheduler.db"
		}
		db, err = gorm.Open(sqlite.Open(path), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service uses
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&models.Resident{}, &models.Staff{}, &models.Shift{}, &models.CareTask{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
