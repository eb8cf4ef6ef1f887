package databank

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/victoriahouse/recall/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(dir, "recall.db")
	gdb, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.EnsureSchema(gdb, slog.Default()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return NewStore(StoreConfig{DB: gdb, Root: filepath.Join(dir, "banks")})
}

func mustCreateBank(t *testing.T, s *Store, name string) Bank {
	t.Helper()
	bank, err := s.CreateOrReplaceBank(context.Background(), Bank{Name: name})
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	return bank
}

func TestBankLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bank := mustCreateBank(t, s, "recipes")
	if bank.ID == "" || bank.CreatedAt == 0 {
		t.Fatalf("bank not initialized: %+v", bank)
	}

	got, ok, err := s.GetBank(ctx, bank.ID)
	if err != nil || !ok {
		t.Fatalf("get bank: ok=%v err=%v", ok, err)
	}
	if got.Name != "recipes" {
		t.Fatalf("name = %q", got.Name)
	}

	// Replacing keeps the original creation time.
	replaced, err := s.CreateOrReplaceBank(ctx, Bank{ID: bank.ID, Name: "renamed"})
	if err != nil {
		t.Fatalf("replace bank: %v", err)
	}
	if replaced.CreatedAt != bank.CreatedAt {
		t.Fatalf("createdAt changed on replace: %d -> %d", bank.CreatedAt, replaced.CreatedAt)
	}

	banks, err := s.ListBanks(ctx)
	if err != nil {
		t.Fatalf("list banks: %v", err)
	}
	if len(banks) != 1 || banks[0].Name != "renamed" {
		t.Fatalf("banks = %+v", banks)
	}

	ok, err = s.DeleteBank(ctx, bank.ID)
	if err != nil || !ok {
		t.Fatalf("delete bank: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := s.GetBank(ctx, bank.ID); ok {
		t.Fatal("bank still readable after delete")
	}
	ok, err = s.DeleteBank(ctx, bank.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Fatal("second delete claimed a row")
	}
}

func TestAddEntryTextDerivesTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bank := mustCreateBank(t, s, "notes")

	entry, err := s.AddEntryText(ctx, bank.ID, "Meeting notes\nDiscussed Q3 plan")
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if entry.Title != "Meeting notes" {
		t.Fatalf("title = %q", entry.Title)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("entry not initialized: %+v", entry)
	}

	got, _, err := s.GetBank(ctx, bank.ID)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Content != "Meeting notes\nDiscussed Q3 plan" {
		t.Fatalf("entries = %+v", got.Entries)
	}
}

func TestLongTitleTruncated(t *testing.T) {
	s := newTestStore(t)
	bank := mustCreateBank(t, s, "long")

	long := strings.Repeat("x", 200)
	entry, err := s.AddEntryText(context.Background(), bank.ID, long)
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if len([]rune(entry.Title)) != 83 || !strings.HasSuffix(entry.Title, "...") {
		t.Fatalf("title = %q (%d runes)", entry.Title, len([]rune(entry.Title)))
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bank := mustCreateBank(t, s, "files")

	payload := []byte("attachment payload \x00\x01\x02 bytes")
	src := filepath.Join(t.TempDir(), "upload tmp.bin")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	entry, err := s.AddEntry(ctx, bank.ID, Entry{
		Content:            "with a file",
		AttachmentTempPath: src,
		AttachmentFileName: "report:2026.bin",
	})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}

	got, _, err := s.GetBank(ctx, bank.ID)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("entries = %+v", got.Entries)
	}
	e := got.Entries[0]
	if !e.HasAttachment() {
		t.Fatalf("attachment fields missing: %+v", e)
	}
	if e.AttachmentTempPath != "" {
		t.Fatal("transient path not cleared")
	}
	if !strings.HasPrefix(e.AttachmentPath, s.bankDir(bank.ID)) {
		t.Fatalf("attachment outside bank folder: %q", e.AttachmentPath)
	}
	if !strings.Contains(filepath.Base(e.AttachmentPath), entry.ID) {
		t.Fatalf("file name missing entry id: %q", e.AttachmentPath)
	}
	if e.AttachmentSizeBytes != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", e.AttachmentSizeBytes, len(payload))
	}

	stored, err := os.ReadFile(e.AttachmentPath)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, payload) {
		t.Fatal("stored file differs from source")
	}
}

func TestAttachmentCopyFailureKeepsEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bank := mustCreateBank(t, s, "missing-source")

	entry, err := s.AddEntry(ctx, bank.ID, Entry{
		Content:            "source vanished",
		AttachmentTempPath: filepath.Join(t.TempDir(), "does-not-exist.bin"),
	})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if entry.HasAttachment() {
		t.Fatalf("attachment recorded despite failed copy: %+v", entry)
	}

	got, _, _ := s.GetBank(ctx, bank.ID)
	if len(got.Entries) != 1 {
		t.Fatalf("entry lost: %+v", got.Entries)
	}
}

func TestUpdateEntryBranches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bank := mustCreateBank(t, s, "updates")

	src := filepath.Join(t.TempDir(), "v1.txt")
	if err := os.WriteFile(src, []byte("version one"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	entry, err := s.AddEntry(ctx, bank.ID, Entry{Content: "draft", AttachmentTempPath: src})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	firstPath := entry.AttachmentPath

	// Branch (b): replace the attachment from a new transient file.
	src2 := filepath.Join(t.TempDir(), "v2.txt")
	if err := os.WriteFile(src2, []byte("version two"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	updated, ok, err := s.UpdateEntry(ctx, bank.ID, Entry{
		ID:                 entry.ID,
		Content:            "draft v2",
		AttachmentTempPath: src2,
	})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(firstPath); !os.IsNotExist(err) {
		t.Fatalf("old attachment not deleted: %v", err)
	}
	if data, _ := os.ReadFile(updated.AttachmentPath); string(data) != "version two" {
		t.Fatalf("new attachment content = %q", data)
	}
	if updated.CreatedAt != entry.CreatedAt {
		t.Fatal("createdAt changed on update")
	}

	// Branch (a): removal clears fields and deletes the file.
	removedPath := updated.AttachmentPath
	updated, ok, err = s.UpdateEntry(ctx, bank.ID, Entry{
		ID:                         entry.ID,
		Content:                    "draft v3",
		AttachmentMarkedForRemoval: true,
	})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if updated.HasAttachment() {
		t.Fatalf("attachment fields survive removal: %+v", updated)
	}
	if _, err := os.Stat(removedPath); !os.IsNotExist(err) {
		t.Fatalf("removed attachment still on disk: %v", err)
	}

	// Branch (c): already-durable fields pass through without copying.
	durable := filepath.Join(s.bankDir(bank.ID), "preexisting_"+entry.ID+".txt")
	if err := os.WriteFile(durable, []byte("kept"), 0o644); err != nil {
		t.Fatalf("write durable: %v", err)
	}
	updated, ok, err = s.UpdateEntry(ctx, bank.ID, Entry{
		ID:                 entry.ID,
		Content:            "draft v4",
		AttachmentPath:     durable,
		AttachmentFileName: "preexisting.txt",
	})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if updated.AttachmentPath != durable {
		t.Fatalf("durable path rewritten: %q", updated.AttachmentPath)
	}

	// A content-only update keeps the existing attachment.
	updated, ok, err = s.UpdateEntry(ctx, bank.ID, Entry{ID: entry.ID, Content: "draft v5"})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if updated.AttachmentPath != durable {
		t.Fatalf("attachment lost on content-only update: %+v", updated)
	}

	// Unknown id is a no-op.
	_, ok, err = s.UpdateEntry(ctx, bank.ID, Entry{ID: "ghost", Content: "x"})
	if err != nil {
		t.Fatalf("update ghost: %v", err)
	}
	if ok {
		t.Fatal("update of missing entry reported success")
	}
}

func TestDeleteEntryRemovesAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bank := mustCreateBank(t, s, "cleanup")

	src := filepath.Join(t.TempDir(), "doomed.txt")
	if err := os.WriteFile(src, []byte("bye"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	entry, err := s.AddEntry(ctx, bank.ID, Entry{Content: "to delete", AttachmentTempPath: src})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}

	ok, err := s.DeleteEntry(ctx, bank.ID, entry.ID)
	if err != nil || !ok {
		t.Fatalf("delete entry: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(entry.AttachmentPath); !os.IsNotExist(err) {
		t.Fatalf("attachment survived entry delete: %v", err)
	}

	got, _, _ := s.GetBank(ctx, bank.ID)
	if len(got.Entries) != 0 {
		t.Fatalf("entries = %+v", got.Entries)
	}

	ok, err = s.DeleteEntry(ctx, bank.ID, entry.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Fatal("second delete reported success")
	}
}

func TestDeleteBankRemovesFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bank := mustCreateBank(t, s, "folder")

	src := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(src, []byte("a"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if _, err := s.AddEntry(ctx, bank.ID, Entry{Content: "a", AttachmentTempPath: src}); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	ok, err := s.DeleteBank(ctx, bank.ID)
	if err != nil || !ok {
		t.Fatalf("delete bank: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(s.bankDir(bank.ID)); !os.IsNotExist(err) {
		t.Fatalf("bank folder survived delete: %v", err)
	}
}
