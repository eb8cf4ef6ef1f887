package databank

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/victoriahouse/recall/internal/jsonutil"
)

// decodeEntries reads a stored entry array under any historical shape.
// The current typed shape is tried first, then the old plain
// list-of-strings shape, then a repair pass over damaged JSON. A bank
// whose entries cannot be decoded at all reads back as empty, never as
// an error.
func (s *Store) decodeEntries(raw string) []Entry {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	var typed []Entry
	if err := json.Unmarshal([]byte(raw), &typed); err == nil && meaningful(typed) {
		return typed
	}

	var legacy []string
	if err := json.Unmarshal([]byte(raw), &legacy); err == nil {
		return synthesize(legacy)
	}

	// Last resort: the stored text may be JSON wrapped in garbage or
	// slightly damaged.
	if err := jsonutil.DecodeWithFallback(raw, &typed); err == nil && meaningful(typed) {
		return typed
	}
	if err := jsonutil.DecodeWithFallback(raw, &legacy); err == nil {
		return synthesize(legacy)
	}

	s.log.Warn("undecodable data bank entries, treating as empty", "size", len(raw))
	return nil
}

// meaningful rejects parses that technically succeeded but produced no
// usable entries, so the legacy shape still gets its chance.
func meaningful(entries []Entry) bool {
	for _, e := range entries {
		if e.ID != "" || e.Content != "" || e.Title != "" {
			return true
		}
	}
	return false
}

func synthesize(texts []string) []Entry {
	now := time.Now()
	entries := make([]Entry, 0, len(texts))
	for _, text := range texts {
		entries = append(entries, Entry{
			ID:           uuid.NewString(),
			Title:        DeriveTitle(text),
			Content:      text,
			CreatedAt:    now,
			LastModified: now,
		})
	}
	return entries
}
