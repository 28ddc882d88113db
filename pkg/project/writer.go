package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// FileWrite is one pending file replacement
type FileWrite struct {
	Path string
	Data []byte
}

// WriteAll replaces a set of files with all-or-nothing semantics. Content
// is staged into temporary files in each target's own directory, then the
// whole set is committed by renames: each original moves aside to a
// backup before its staged replacement moves in, and a rename failure
// puts every original back. A failure at any phase leaves every target
// with its old content; a crash mid-run orphans only temp and backup
// files, which are safe to delete. Files whose content is already
// identical are skipped, so a no-op synchronization touches nothing.
func WriteAll(writes []FileWrite) error {
	var pending []FileWrite
	for _, w := range writes {
		current, err := os.ReadFile(w.Path)
		if err == nil && bytes.Equal(current, w.Data) {
			continue
		}
		pending = append(pending, w)
	}
	if len(pending) == 0 {
		return nil
	}

	temps := make([]string, 0, len(pending))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}

	for _, w := range pending {
		tmp, err := stage(w)
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, tmp)
	}

	backups := make([]string, len(pending))
	for i, w := range pending {
		bak := filepath.Join(filepath.Dir(w.Path), "."+filepath.Base(w.Path)+".bak")
		err := os.Rename(w.Path, bak)
		switch {
		case err == nil:
			backups[i] = bak
		case os.IsNotExist(err):
			// First write of this target, nothing to move aside
		default:
			rollback(pending, temps, backups, i)
			return fmt.Errorf("failed to commit %s: %w", w.Path, err)
		}
		if err := os.Rename(temps[i], w.Path); err != nil {
			rollback(pending, temps, backups, i)
			return fmt.Errorf("failed to commit %s: %w", w.Path, err)
		}
	}

	for _, bak := range backups {
		if bak != "" {
			os.Remove(bak)
		}
	}
	return nil
}

// rollback restores the originals after a failed commit. Targets up to
// index i may already hold new content; targets that never existed before
// this run are removed again.
func rollback(pending []FileWrite, temps, backups []string, i int) {
	for j := i; j >= 0; j-- {
		if backups[j] != "" {
			os.Rename(backups[j], pending[j].Path)
		} else if j < i {
			os.Remove(pending[j].Path)
		}
	}
	for _, tmp := range temps {
		os.Remove(tmp)
	}
}

func stage(w FileWrite) (string, error) {
	dir := filepath.Dir(w.Path)
	base := filepath.Base(w.Path)

	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", w.Path, err)
	}
	tmp := f.Name()

	if _, err := f.Write(w.Data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to stage %s: %w", w.Path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to stage %s: %w", w.Path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to stage %s: %w", w.Path, err)
	}
	return tmp, nil
}
