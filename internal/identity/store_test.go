package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibephone/switchboard/internal/domain"
)

func TestAssignIsStable(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "calls.json"))

	first, err := s.Assign("pc-abc")
	require.NoError(t, err)
	assert.Equal(t, domain.CallID(DefaultNextCall), first)

	for i := 0; i < 5; i++ {
		again, err := s.Assign("pc-abc")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAssignDistinctDevices(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "calls.json"))

	a, err := s.Assign("pc-a")
	require.NoError(t, err)
	b, err := s.Assign("pc-b")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a+1, b)
}

func TestAssignSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.json")

	s := Open(path)
	first, err := s.Assign("pc-x")
	require.NoError(t, err)
	_, err = s.Assign("pc-y")
	require.NoError(t, err)

	reopened := Open(path)
	again, err := reopened.Assign("pc-x")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	fresh, err := reopened.Assign("pc-z")
	require.NoError(t, err)
	assert.Greater(t, fresh, first, "counter must keep increasing after restart")
}

func TestFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.json")

	s := Open(path)
	_, err := s.Assign("pc-1")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var f struct {
		NextCall int            `json:"nextCall"`
		ByDevice map[string]int `json:"byDevice"`
	}
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Equal(t, DefaultNextCall+1, f.NextCall)
	assert.Equal(t, map[string]int{"pc-1": DefaultNextCall}, f.ByDevice)
}

func TestOpenMalformedFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Open(path)
	assert.Equal(t, domain.CallID(DefaultNextCall), s.NextCall())

	call, err := s.Assign("pc-new")
	require.NoError(t, err)
	assert.Equal(t, domain.CallID(DefaultNextCall), call)
}

func TestAssignRollsBackOnPersistFailure(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the store wants its directory makes MkdirAll
	// fail on every platform and as every user.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested"), nil, 0o644))
	s := Open(filepath.Join(dir, "nested", "calls.json"))

	_, err := s.Assign("pc-fail")
	require.Error(t, err)
	assert.Equal(t, domain.CallID(DefaultNextCall), s.NextCall(), "counter must roll back")

	_, known := s.Lookup("pc-fail")
	assert.False(t, known, "failed assignment must not leave a mapping")
}
