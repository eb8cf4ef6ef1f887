// Package kvstore is a small typed-JSON configuration store used by the
// surrounding application for settings and contact records.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victoriahouse/recall/db/models"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// Set stores value under key as JSON, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	row := models.KVEntry{
		Key:       key,
		Value:     string(raw),
		UpdatedAt: time.Now().Unix(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get decodes the stored value into dst, reporting whether the key
// exists.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	var row models.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(row.Value), dst); err != nil {
		return false, fmt.Errorf("decode value for %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.KVEntry{}).
		Where("key = ?", key).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{})
	if res.Error != nil {
		return false, fmt.Errorf("delete %s: %w", key, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetAll returns every key with its raw JSON value.
func (s *Store) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	var rows []models.KVEntry
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		out[row.Key] = json.RawMessage(row.Value)
	}
	return out, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM kv_entries").Error; err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}
