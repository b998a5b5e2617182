// Package appstore serves client application bundles from an on-disk
// catalog: apps/<id>/manifest.json plus apps/<id>/files/<path>. It is an
// external collaborator of the core and never touches session state.
package appstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound = errors.New("app not found")
	ErrBadPath  = errors.New("path escapes app directory")
)

// Manifest describes one installable app bundle.
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Entry       string `json:"entry"`
	InstallBase string `json:"installBase"`
}

// Store reads the catalog directory on demand; there is no cache, the
// catalog is tiny and edits should show up without a restart.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// List returns every app with a readable manifest, sorted by id. A missing
// catalog directory is an empty list, not an error.
func (s *Store) List() []Manifest {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Str("module", "appstore").Str("dir", s.dir).Err(err).Msg("cannot read apps directory")
		}
		return nil
	}

	out := make([]Manifest, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := s.Manifest(e.Name())
		if err != nil {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Manifest loads one app's manifest, filling defaults for omitted fields.
func (s *Store) Manifest(id string) (*Manifest, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, id, "manifest.json"))
	if err != nil {
		return nil, ErrNotFound
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ErrNotFound
	}
	if m.ID == "" {
		m.ID = id
	}
	if m.Name == "" {
		m.Name = id
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	if m.Entry == "" {
		m.Entry = "app.lua"
	}
	if m.InstallBase == "" {
		m.InstallBase = "/apps/" + id
	}
	return &m, nil
}

// File reads one bundle file by its path relative to the app's files dir,
// rejecting traversal outside it.
func (s *Store) File(id, rel string) ([]byte, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	base := filepath.Join(s.dir, id, "files")
	full := filepath.Join(base, filepath.FromSlash(rel))
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return nil, ErrBadPath
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, ErrNotFound
	}
	return os.ReadFile(full)
}

// Files reads the whole bundle into a path→content map for app_fetch.
func (s *Store) Files(id string) (map[string]string, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	base := filepath.Join(s.dir, id, "files")
	if _, err := os.Stat(base); err != nil {
		return nil, ErrNotFound
	}

	out := make(map[string]string)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validID keeps ids to a single path element.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
