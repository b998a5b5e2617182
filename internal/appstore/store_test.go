package appstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibephone/switchboard/internal/core"
)

func writeApp(t *testing.T, dir, id, manifest string, files map[string]string) {
	t.Helper()
	base := filepath.Join(dir, id)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "files"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "manifest.json"), []byte(manifest), 0o644))
	for rel, content := range files {
		path := filepath.Join(base, "files", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestListSortedWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeApp(t, dir, "vibechat", `{"name":"VibeChat","version":"1.0.0"}`, nil)
	writeApp(t, dir, "calc", `{}`, nil)
	// Broken manifests are skipped, not fatal.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken", "manifest.json"), []byte("{nope"), 0o644))

	apps := NewStore(dir).List()
	require.Len(t, apps, 2)
	assert.Equal(t, "calc", apps[0].ID)
	assert.Equal(t, "vibechat", apps[1].ID)

	assert.Equal(t, "calc", apps[0].Name)
	assert.Equal(t, "0.0.0", apps[0].Version)
	assert.Equal(t, "app.lua", apps[0].Entry)
	assert.Equal(t, "/apps/calc", apps[0].InstallBase)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, s.List())
}

func TestManifestNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Manifest("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileAndTraversal(t *testing.T) {
	dir := t.TempDir()
	writeApp(t, dir, "vibechat", `{}`, map[string]string{
		"config.lua":   "return {}",
		"sub/util.lua": "-- util",
	})
	s := NewStore(dir)

	raw, err := s.File("vibechat", "config.lua")
	require.NoError(t, err)
	assert.Equal(t, "return {}", string(raw))

	raw, err = s.File("vibechat", "/sub/util.lua")
	require.NoError(t, err)
	assert.Equal(t, "-- util", string(raw))

	_, err = s.File("vibechat", "../manifest.json")
	assert.ErrorIs(t, err, ErrBadPath)

	_, err = s.File("../vibechat", "config.lua")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.File("vibechat", "missing.lua")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesBundle(t *testing.T) {
	dir := t.TempDir()
	writeApp(t, dir, "vibechat", `{}`, map[string]string{
		"main.lua":     "print()",
		"sub/util.lua": "-- util",
	})

	files, err := NewStore(dir).Files("vibechat")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"main.lua":     "print()",
		"sub/util.lua": "-- util",
	}, files)
}

type captureConn struct {
	frames []core.Frame
}

func (c *captureConn) TrySend(f core.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureConn) Close() {}

func TestHandleFrame(t *testing.T) {
	dir := t.TempDir()
	writeApp(t, dir, "vibechat", `{"name":"VibeChat"}`, map[string]string{"main.lua": "print()"})
	s := NewStore(dir)
	conn := &captureConn{}

	s.HandleFrame(conn, "apps_list", []byte(`{"t":"apps_list"}`))
	require.Len(t, conn.frames, 1)
	assert.Contains(t, string(conn.frames[0]), `"t":"apps_list"`)
	assert.Contains(t, string(conn.frames[0]), `"VibeChat"`)

	s.HandleFrame(conn, "app_fetch", []byte(`{"t":"app_fetch","id":"vibechat"}`))
	require.Len(t, conn.frames, 2)
	assert.Contains(t, string(conn.frames[1]), `"ok":true`)
	assert.Contains(t, string(conn.frames[1]), `"main.lua"`)

	s.HandleFrame(conn, "app_fetch", []byte(`{"t":"app_fetch","id":"ghost"}`))
	require.Len(t, conn.frames, 3)
	assert.Contains(t, string(conn.frames[2]), `"error":"not_found"`)

	// Missing id is dropped without reply.
	s.HandleFrame(conn, "app_fetch", []byte(`{"t":"app_fetch"}`))
	assert.Len(t, conn.frames, 3)
}
