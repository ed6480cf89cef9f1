package executor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meridian-db/meridian/entity"
)

func TestWriteSnapshotFile_SkipsWhenDirIsEmpty(t *testing.T) {
	if err := writeSnapshotFile("", "deadbeef", &entity.Definition{Name: "Orders"}); err != nil {
		t.Fatalf("writeSnapshotFile() error = %v", err)
	}
}

func TestWriteSnapshotFile_WritesOneFilePerContentHash(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	def := &entity.Definition{Name: "Orders", Schema: "dbo"}

	if err := writeSnapshotFile(dir, "abc123", def); err != nil {
		t.Fatalf("writeSnapshotFile() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "abc123.json"))
	if err != nil {
		t.Fatalf("expected snapshot file to exist: %v", err)
	}
	if !strings.Contains(string(data), `"Name": "Orders"`) {
		t.Errorf("expected snapshot to contain entity name, got:\n%s", data)
	}
}
