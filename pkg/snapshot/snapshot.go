// Package snapshot persists the collected records as one JSON document. The
// document is rendered fully in memory and then swapped into place with a
// rename, so a reader of the canonical path sees either the previous snapshot
// or the new one, never a partial file.
package snapshot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/models"
)

// Indent is the per-level indentation of the written document
const Indent = "    "

// beforeRename runs after the temp file is complete; tests use it to
// interrupt a write
var beforeRename = func(tmpPath string) error { return nil }

// Marshal renders snap the way Write stores it: four-space indent, empty
// collections as [], HTML characters left unescaped
func Marshal(snap *models.Snapshot) ([]byte, error) {
	normalized := models.NewSnapshot(snap.Products, snap.Testimonials, snap.Reviews)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(normalized); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeIO, err, "failed to encode snapshot")
	}
	return buf.Bytes(), nil
}

// Write replaces the snapshot at path with snap
func Write(path string, snap *models.Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	return WriteFile(path, data, 0644)
}

// WriteFile replaces path with data through a synced temp file in the same
// directory and a rename. The temp file is removed on every failure.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeIO, err, "failed to create directory for %s", path)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeIO, err, "failed to create temporary file for %s", path)
	}
	tempPath := file.Name()

	fail := func(err error, msg string) error {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "%s %s", msg, path)
	}

	if _, err := file.Write(data); err != nil {
		return fail(err, "failed to write")
	}
	if err := file.Sync(); err != nil {
		return fail(err, "failed to sync")
	}
	if err := file.Chmod(perm); err != nil {
		return fail(err, "failed to set permissions on")
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "failed to close %s", path)
	}

	if err := beforeRename(tempPath); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "write of %s interrupted", path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "failed to replace %s", path)
	}
	return nil
}

// Load reads the snapshot at path
func Load(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeIO, err, "failed to read snapshot")
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDecode, err, "failed to decode snapshot %s", path)
	}
	snap.Normalize()
	return &snap, nil
}
