package databank

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/victoriahouse/recall/internal/pathutil"
)

// bankDir is the durable attachment folder for a bank.
func (s *Store) bankDir(bankID string) string {
	return filepath.Join(s.root, pathutil.SanitizeFileName(bankID))
}

// attachmentName builds a collision-free file name from the original
// name and the owning entry's id:
// <sanitized-name-without-ext>_<entry-id><ext>.
func attachmentName(original, entryID string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return pathutil.SanitizeFileName(stem) + "_" + entryID + ext
}

// storeAttachment copies the entry's transient file into the bank's
// folder and fills in the durable attachment fields. A failed copy is a
// degradation, not an error: the entry is kept without an attachment.
func (s *Store) storeAttachment(bankID string, e *Entry) {
	src := e.AttachmentTempPath
	original := e.AttachmentFileName
	if original == "" {
		original = filepath.Base(src)
	}

	dir := s.bankDir(bankID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Warn("attachment folder create failed", "bank", bankID, "error", err)
		e.clearAttachment()
		return
	}
	dst := filepath.Join(dir, attachmentName(original, e.ID))

	size, err := copyFile(src, dst)
	if err != nil {
		s.log.Warn("attachment copy failed", "bank", bankID, "entry", e.ID, "source", src, "error", err)
		e.clearAttachment()
		return
	}

	contentType := e.AttachmentContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(original))
	}

	e.AttachmentPath = dst
	e.AttachmentFileName = original
	e.AttachmentContentType = contentType
	e.AttachmentSizeBytes = size
	e.AttachmentTempPath = ""
}

// removeAttachmentFile deletes an entry's backing file, logging but not
// propagating failures.
func (s *Store) removeAttachmentFile(e Entry) {
	if e.AttachmentPath == "" {
		return
	}
	if err := os.Remove(e.AttachmentPath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("attachment delete failed", "path", e.AttachmentPath, "error", err)
	}
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create target: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, in)
	if err != nil {
		return 0, fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close target: %w", err)
	}
	return size, nil
}
