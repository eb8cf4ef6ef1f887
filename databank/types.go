// Package databank stores named collections of curated notes, each note
// optionally carrying a file attachment owned by the bank's folder on
// disk. Entries live embedded in the bank record: every mutation reads
// the whole bank, edits the list in memory and rewrites the whole bank,
// so concurrent writers to the same bank must be serialized by the
// caller.
package databank

import (
	"time"

	"github.com/victoriahouse/recall/internal/strutil"
)

const titleMaxRunes = 80

// Bank is a named collection of entries.
type Bank struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Entries      []Entry `json:"entries"`
	CreatedAt    int64   `json:"created_at"`
	LastModified int64   `json:"last_modified"`
}

// Entry is one curated note. The attachment fields are either all empty
// or all populated, and AttachmentPath always points inside the owning
// bank's folder.
type Entry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Importance   float64   `json:"importance,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`

	AttachmentPath        string `json:"attachment_path,omitempty"`
	AttachmentFileName    string `json:"attachment_file_name,omitempty"`
	AttachmentContentType string `json:"attachment_content_type,omitempty"`
	AttachmentSizeBytes   int64  `json:"attachment_size_bytes,omitempty"`

	// AttachmentTempPath names a file not yet copied into the bank's
	// folder. AttachmentMarkedForRemoval requests dropping the current
	// attachment. Neither is persisted.
	AttachmentTempPath         string `json:"-"`
	AttachmentMarkedForRemoval bool   `json:"-"`
}

// HasAttachment reports whether the entry carries a durable attachment.
func (e Entry) HasAttachment() bool {
	return e.AttachmentPath != ""
}

func (e *Entry) clearAttachment() {
	e.AttachmentPath = ""
	e.AttachmentFileName = ""
	e.AttachmentContentType = ""
	e.AttachmentSizeBytes = 0
	e.AttachmentTempPath = ""
	e.AttachmentMarkedForRemoval = false
}

// DeriveTitle builds a title from free-form content: the first non-blank
// line, capped at 80 runes with an ellipsis when cut.
func DeriveTitle(content string) string {
	return strutil.TruncateRunes(strutil.FirstNonBlankLine(content), titleMaxRunes)
}
