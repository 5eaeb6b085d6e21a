package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRateLimit is the daily request allowance given to new API keys
const DefaultRateLimit = 10000

// FindOrCreateAPIKey fetches the record of a verified key, creating it on first use,
// and stamps its last use
func (r *Repository) FindOrCreateAPIKey(ctx context.Context, key, name string) (*APIKey, error) {
	db := r.db.WithContext(ctx)

	var apiKey APIKey
	err := db.Where(APIKey{Key: key}).Attrs(APIKey{
		Name:       name,
		KeyPreview: Preview(key),
		RateLimit:  DefaultRateLimit,
	}).FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}

	now := time.Now()
	if err := db.Model(&apiKey).UpdateColumn("last_used", now).Error; err != nil {
		return nil, fmt.Errorf("failed to stamp api key: %w", err)
	}
	apiKey.LastUsed = &now
	return &apiKey, nil
}

// CreateAPIKey stores a newly minted key
func (r *Repository) CreateAPIKey(ctx context.Context, key *APIKey) error {
	if key.KeyPreview == "" {
		key.KeyPreview = Preview(key.Key)
	}
	if key.RateLimit == 0 {
		key.RateLimit = DefaultRateLimit
	}
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return fmt.Errorf("failed to create key record: %w", err)
	}
	return nil
}

// ListAPIKeys returns all API keys
func (r *Repository) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := r.db.WithContext(ctx).Order("id").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// DeleteAPIKey revokes a key by id
func (r *Repository) DeleteAPIKey(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&APIKey{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateKeyLimit changes the rate limit for a key
func (r *Repository) UpdateKeyLimit(ctx context.Context, id uint, limit int) error {
	res := r.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Update("rate_limit", limit)
	if res.Error != nil {
		return fmt.Errorf("failed to update key limit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordUsage adds one request to today's usage row for a key using a single upsert
func (r *Repository) RecordUsage(ctx context.Context, keyID uint, shiftCount, staffCount int) error {
	today := time.Now().Format("2006-01-02")

	// OnConflict is supported by both Postgres and SQLite
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
			"total_shifts":  gorm.Expr("total_shifts + ?", shiftCount),
			"total_staff":   gorm.Expr("total_staff + ?", staffCount),
		}),
	}).Create(&APIUsage{
		KeyID:        keyID,
		Date:         today,
		RequestCount: 1,
		TotalShifts:  shiftCount,
		TotalStaff:   staffCount,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// UsageForKey returns the last 30 days of usage for a key, newest first
func (r *Repository) UsageForKey(ctx context.Context, keyID uint) ([]APIUsage, error) {
	var usage []APIUsage
	if err := r.db.WithContext(ctx).Where("key_id = ?", keyID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch usage: %w", err)
	}
	return usage, nil
}

// FindUser looks up an admin by username
func (r *Repository) FindUser(ctx context.Context, username string) (*MasterUser, error) {
	var user MasterUser
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CountUsers returns the number of admin users
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&MasterUser{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CreateUser stores an admin user
func (r *Repository) CreateUser(ctx context.Context, user *MasterUser) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Preview masks a key for display, e.g. "adm...9f2c"
func Preview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}
