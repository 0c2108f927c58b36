package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Watermark persists the largest indexed updated stamp. Saves are atomic
// (write temp file, fsync, rename) so a crash never leaves a torn value.
type Watermark struct {
	path string
}

func NewWatermark(path string) *Watermark {
	return &Watermark{path: path}
}

// Load returns the persisted stamp, or "" when none has been saved yet.
func (w *Watermark) Load() (string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (w *Watermark) Save(stamp string) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(stamp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
