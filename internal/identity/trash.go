package identity

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/facetrace/attendance/internal/logger"
)

// snapshotFileName is the serialized identity record written into every
// trash subdirectory.
const snapshotFileName = "identity_snapshot.json"

// archiveToTrash moves the identity's photo assets into a fresh
// timestamped trash subdirectory and writes the identity record beside
// them. Assets that cannot be moved are logged and skipped; the snapshot
// still records their original paths so an operator can recover by hand.
func (r *Repository) archiveToTrash(ident *Identity) (string, error) {
	dir := filepath.Join(r.TrashDir(),
		fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), ident.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating trash directory: %w", err)
	}

	for _, rel := range ident.ImagePaths {
		src := filepath.Join(r.dataDir, rel)
		dst := filepath.Join(dir, filepath.Base(rel))
		if err := moveFile(src, dst); err != nil {
			r.log.Errorw("failed to move asset to trash",
				logger.FieldIdentityID, ident.ID,
				logger.FieldPath, src,
				logger.FieldError, err)
		}
	}

	data, err := json.MarshalIndent(ident, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding identity snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, snapshotFileName), data, 0o644); err != nil {
		return "", fmt.Errorf("writing identity snapshot: %w", err)
	}

	return dir, nil
}

// moveFile renames src to dst, falling back to copy+remove when the rename
// crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
