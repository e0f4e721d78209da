package journal

import (
	"testing"
)

func TestInitCreatesSchema(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer db.Close()

	version, err := GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestInitIdempotent(t *testing.T) {
	dir := t.TempDir()
	db1, err := Init(dir)
	if err != nil {
		t.Fatalf("first Init: %v", err)
	}
	db1.Close()

	db2, err := Init(dir)
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	db2.Close()
}

func TestRecordAndListRevisions(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer db.Close()

	first, err := RecordRevision(db, "/docs/plan.docx", []byte("version one"))
	if err != nil {
		t.Fatalf("RecordRevision: %v", err)
	}
	if first.ID == "" || first.Bytes != len("version one") || first.SHA256 == "" {
		t.Errorf("revision = %+v", first)
	}

	second, err := RecordRevision(db, "/docs/plan.docx", []byte("version two, longer"))
	if err != nil {
		t.Fatalf("RecordRevision: %v", err)
	}
	if _, err := RecordRevision(db, "/docs/other.docx", []byte("unrelated")); err != nil {
		t.Fatalf("RecordRevision: %v", err)
	}

	revs, err := ListRevisions(db, "/docs/plan.docx", 0)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revs))
	}
	// newest first
	if revs[0].ID != second.ID || revs[1].ID != first.ID {
		t.Errorf("order = %s, %s", revs[0].ID, revs[1].ID)
	}
	if revs[0].SHA256 == revs[1].SHA256 {
		t.Error("different content produced identical hashes")
	}

	limited, err := ListRevisions(db, "/docs/plan.docx", 1)
	if err != nil {
		t.Fatalf("ListRevisions limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Errorf("limited = %+v", limited)
	}
}

func TestListRevisionsEmpty(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer db.Close()

	revs, err := ListRevisions(db, "/docs/none.docx", 0)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 0 {
		t.Errorf("revisions = %d, want 0", len(revs))
	}
}
