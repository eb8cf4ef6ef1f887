package databank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victoriahouse/recall/db/models"
)

// StoreConfig wires a Store. DB is required. Root is the directory that
// holds per-bank attachment folders.
type StoreConfig struct {
	DB     *gorm.DB
	Root   string
	Logger *slog.Logger
}

type Store struct {
	db   *gorm.DB
	root string
	log  *slog.Logger
}

func NewStore(cfg StoreConfig) *Store {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: cfg.DB, root: cfg.Root, log: log}
}

// CreateOrReplaceBank writes the bank record as given, preserving the
// original creation time when a bank with the same id already exists.
func (s *Store) CreateOrReplaceBank(ctx context.Context, bank Bank) (Bank, error) {
	now := time.Now().Unix()
	if bank.ID == "" {
		bank.ID = uuid.NewString()
	}
	bank.LastModified = now
	bank.CreatedAt = now

	var prev models.DataBank
	err := s.db.WithContext(ctx).
		Select("created_at").
		Where("id = ?", bank.ID).
		First(&prev).Error
	switch {
	case err == nil:
		bank.CreatedAt = prev.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return Bank{}, fmt.Errorf("lookup data bank %s: %w", bank.ID, err)
	}

	if err := s.writeBank(ctx, bank); err != nil {
		return Bank{}, err
	}
	return bank, nil
}

func (s *Store) GetBank(ctx context.Context, id string) (Bank, bool, error) {
	var row models.DataBank
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Bank{}, false, nil
	}
	if err != nil {
		return Bank{}, false, fmt.Errorf("get data bank %s: %w", id, err)
	}
	return s.fromRow(row), true, nil
}

func (s *Store) ListBanks(ctx context.Context) ([]Bank, error) {
	var rows []models.DataBank
	err := s.db.WithContext(ctx).Order("name").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list data banks: %w", err)
	}
	banks := make([]Bank, 0, len(rows))
	for _, row := range rows {
		banks = append(banks, s.fromRow(row))
	}
	return banks, nil
}

// AddEntryText derives an entry from free-form text and appends it.
func (s *Store) AddEntryText(ctx context.Context, bankID, text string) (Entry, error) {
	return s.AddEntry(ctx, bankID, Entry{
		Title:   DeriveTitle(text),
		Content: text,
	})
}

// AddEntry appends an entry to the bank, assigning id, title and
// timestamps when missing and moving any transient attachment into the
// bank's folder.
func (s *Store) AddEntry(ctx context.Context, bankID string, e Entry) (Entry, error) {
	bank, ok, err := s.GetBank(ctx, bankID)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("data bank %s not found", bankID)
	}

	now := time.Now()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Title == "" {
		e.Title = DeriveTitle(e.Content)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.LastModified = now

	switch {
	case e.AttachmentMarkedForRemoval:
		e.clearAttachment()
	case e.AttachmentTempPath != "":
		s.storeAttachment(bankID, &e)
	}

	bank.Entries = append(bank.Entries, e)
	bank.LastModified = now.Unix()
	if err := s.writeBank(ctx, bank); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// UpdateEntry replaces the stored entry with the same id. A missing
// entry is a no-op, reported through the bool return. Attachment
// handling takes exactly one of three branches: removal, replacement
// from a transient path, or accepting already-durable fields as given.
func (s *Store) UpdateEntry(ctx context.Context, bankID string, e Entry) (Entry, bool, error) {
	bank, ok, err := s.GetBank(ctx, bankID)
	if err != nil {
		return Entry{}, false, err
	}
	if !ok {
		return Entry{}, false, fmt.Errorf("data bank %s not found", bankID)
	}

	idx := -1
	for i := range bank.Entries {
		if bank.Entries[i].ID == e.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Entry{}, false, nil
	}
	old := bank.Entries[idx]

	now := time.Now()
	e.CreatedAt = old.CreatedAt
	e.LastModified = now
	if e.Title == "" {
		e.Title = DeriveTitle(e.Content)
	}

	switch {
	case e.AttachmentMarkedForRemoval:
		s.removeAttachmentFile(old)
		e.clearAttachment()
	case e.AttachmentTempPath != "":
		s.removeAttachmentFile(old)
		s.storeAttachment(bankID, &e)
	case e.AttachmentPath != "":
		// Already-durable fields pass through as given, no copy.
	default:
		// No attachment change requested: keep what the entry had.
		e.AttachmentPath = old.AttachmentPath
		e.AttachmentFileName = old.AttachmentFileName
		e.AttachmentContentType = old.AttachmentContentType
		e.AttachmentSizeBytes = old.AttachmentSizeBytes
	}

	bank.Entries[idx] = e
	bank.LastModified = now.Unix()
	if err := s.writeBank(ctx, bank); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// DeleteEntry removes the entry and its backing attachment file.
func (s *Store) DeleteEntry(ctx context.Context, bankID, entryID string) (bool, error) {
	bank, ok, err := s.GetBank(ctx, bankID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("data bank %s not found", bankID)
	}

	kept := bank.Entries[:0]
	removed := false
	for _, entry := range bank.Entries {
		if entry.ID == entryID {
			removed = true
			s.removeAttachmentFile(entry)
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return false, nil
	}

	bank.Entries = kept
	bank.LastModified = time.Now().Unix()
	if err := s.writeBank(ctx, bank); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteBank removes the bank record and its attachment folder. A
// folder-deletion failure is logged; the record still goes away.
func (s *Store) DeleteBank(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DataBank{})
	if res.Error != nil {
		return false, fmt.Errorf("delete data bank %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := os.RemoveAll(s.bankDir(id)); err != nil {
		s.log.Warn("bank folder delete failed", "bank", id, "error", err)
	}
	return true, nil
}

func (s *Store) writeBank(ctx context.Context, bank Bank) error {
	entries, err := json.Marshal(bank.Entries)
	if err != nil {
		return fmt.Errorf("encode entries for bank %s: %w", bank.ID, err)
	}
	raw := string(entries)
	row := models.DataBank{
		ID:           bank.ID,
		Name:         bank.Name,
		Description:  bank.Description,
		Entries:      &raw,
		CreatedAt:    bank.CreatedAt,
		LastModified: bank.LastModified,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("write data bank %s: %w", bank.ID, err)
	}
	return nil
}

func (s *Store) fromRow(row models.DataBank) Bank {
	bank := Bank{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		CreatedAt:    row.CreatedAt,
		LastModified: row.LastModified,
	}
	if row.Entries != nil {
		bank.Entries = s.decodeEntries(*row.Entries)
	}
	return bank
}
