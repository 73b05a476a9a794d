package internal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sensiblebit/certswap"
)

func testLocators() []certswap.Locator {
	return []certswap.Locator{
		{Path: "/etc/app/a.pem", Kind: certswap.KindCertificate, Span: certswap.Span{Start: 0, End: 100}},
		{Path: "/etc/app/a.pem", Kind: certswap.KindPrivateKey, Span: certswap.Span{Start: 120, End: 300}},
		{Path: "/etc/app/b.conf", Kind: certswap.KindCertificate, Span: certswap.Span{Start: 42, End: 142}},
	}
}

func TestDB_RecordAndSummarize(t *testing.T) {
	// WHY: The inventory is the audit trail of a rotation; rows and
	// aggregate counts must reflect exactly what the scan matched.
	db, err := NewDB("")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := db.RecordMatches(testLocators(), "svc1", at); err != nil {
		t.Fatalf("RecordMatches: %v", err)
	}

	matches, err := db.GetAllMatches()
	if err != nil {
		t.Fatalf("GetAllMatches: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(matches))
	}
	if matches[0].Path != "/etc/app/a.pem" || matches[0].StartOffset != 0 || matches[0].EndOffset != 100 {
		t.Errorf("first match = %+v, want a.pem [0,100)", matches[0])
	}
	for _, m := range matches {
		if m.CommonName != "svc1" {
			t.Errorf("common name = %q, want svc1", m.CommonName)
		}
	}

	summary, err := db.GetSummary()
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if summary.Certificates != 2 || summary.PrivateKeys != 1 || summary.Files != 2 {
		t.Errorf("summary = %+v, want 2 certificates, 1 key, 2 files", summary)
	}
}

func TestDB_DuplicateRowsIgnored(t *testing.T) {
	db, err := NewDB("")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	locs := testLocators()
	if err := db.RecordMatches(locs, "svc1", at); err != nil {
		t.Fatalf("first RecordMatches: %v", err)
	}
	if err := db.RecordMatches(locs, "svc1", at); err != nil {
		t.Fatalf("second RecordMatches: %v", err)
	}
	matches, err := db.GetAllMatches()
	if err != nil {
		t.Fatalf("GetAllMatches: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("matches = %d, want 3 (same run recorded twice)", len(matches))
	}
}

func TestDB_FileBacked(t *testing.T) {
	// WHY: A file-backed inventory must survive reopening so two runs can
	// be compared.
	path := filepath.Join(t.TempDir(), "inventory.sqlite")

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	at := time.Now().UTC()
	if err := db.RecordMatches(testLocators(), "svc1", at); err != nil {
		t.Fatalf("RecordMatches: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	matches, err := reopened.GetAllMatches()
	if err != nil {
		t.Fatalf("GetAllMatches: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("matches after reopen = %d, want 3", len(matches))
	}
}

func TestDB_SaveToDisk(t *testing.T) {
	db, err := NewDB("")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()
	if err := db.RecordMatches(testLocators(), "svc1", time.Now().UTC()); err != nil {
		t.Fatalf("RecordMatches: %v", err)
	}

	path := filepath.Join(t.TempDir(), "saved.sqlite")
	if err := db.SaveToDisk(path); err != nil {
		t.Fatalf("SaveToDisk: %v", err)
	}

	saved, err := NewDB(path)
	if err != nil {
		t.Fatalf("open saved: %v", err)
	}
	defer saved.Close()
	summary, err := saved.GetSummary()
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if summary.Certificates != 2 {
		t.Errorf("saved summary = %+v, want 2 certificates", summary)
	}
}
