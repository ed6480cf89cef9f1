package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meridian-db/meridian/entity"
)

// writeSnapshotFile implements §6/§8's "JSON schema snapshots written to a
// configured directory, one file per applied version": on a successful
// apply, the desired entity is marshaled under a name keyed by its content
// hash, so a directory listing is itself an audit trail of every version
// ever applied. A caller that never sets SnapshotDir gets none of this —
// the DB-side history row's snapshot column is the only copy in that case.
func writeSnapshotFile(dir string, contentHash string, def *entity.Definition) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := filepath.Join(dir, contentHash+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file %s: %w", path, err)
	}
	return nil
}
