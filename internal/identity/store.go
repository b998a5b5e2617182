// Package identity persists call-number assignments by device id and mints
// ephemeral ids for connections that never identify.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/domain"
)

// DefaultNextCall is where the persisted counter starts on a fresh store.
const DefaultNextCall = 1000

// fileLayout is the on-disk shape: a single JSON object holding the counter
// and the device mapping.
type fileLayout struct {
	NextCall int            `json:"nextCall"`
	ByDevice map[string]int `json:"byDevice"`
}

// Store owns the device→call mapping. Mappings are stable for the lifetime
// of the store and call ids are never reused. All methods are called from
// the exchange goroutine only.
type Store struct {
	path     string
	nextCall domain.CallID
	byDevice map[domain.DeviceID]domain.CallID
}

// Open loads the store from path. A missing or malformed file yields a
// fresh store; only the mutating path can fail.
func Open(path string) *Store {
	s := &Store{
		path:     path,
		nextCall: DefaultNextCall,
		byDevice: make(map[domain.DeviceID]domain.CallID),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Str("module", "identity").Str("path", path).Err(err).Msg("unreadable identity store, starting fresh")
		}
		return s
	}

	var f fileLayout
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Warn().Str("module", "identity").Str("path", path).Err(err).Msg("malformed identity store, starting fresh")
		return s
	}
	if f.NextCall >= DefaultNextCall {
		s.nextCall = domain.CallID(f.NextCall)
	}
	for dev, call := range f.ByDevice {
		s.byDevice[domain.DeviceID(dev)] = domain.CallID(call)
	}
	log.Info().Str("module", "identity").Str("path", path).Int("devices", len(s.byDevice)).Int("next_call", int(s.nextCall)).Msg("identity store loaded")
	return s
}

// Lookup returns the assigned call id for a known device.
func (s *Store) Lookup(device domain.DeviceID) (domain.CallID, bool) {
	call, ok := s.byDevice[device]
	return call, ok
}

// Assign returns the stable call id for a device, minting and persisting a
// new one on first sight. A persistence failure is fatal to the assignment:
// the counter and mapping are rolled back so a retry observes clean state.
func (s *Store) Assign(device domain.DeviceID) (domain.CallID, error) {
	if call, ok := s.byDevice[device]; ok {
		return call, nil
	}

	call := s.nextCall
	s.nextCall++
	s.byDevice[device] = call

	if err := s.save(); err != nil {
		s.nextCall = call
		delete(s.byDevice, device)
		return 0, fmt.Errorf("persist assignment for %q: %w", device, err)
	}
	log.Info().Str("module", "identity").Str("device", string(device)).Int("call", int(call)).Msg("assigned new call id")
	return call, nil
}

// NextCall exposes the counter for range assertions.
func (s *Store) NextCall() domain.CallID {
	return s.nextCall
}

// save rewrites the whole file atomically: temp file in the same directory,
// then rename over the old one.
func (s *Store) save() error {
	f := fileLayout{
		NextCall: int(s.nextCall),
		ByDevice: make(map[string]int, len(s.byDevice)),
	}
	for dev, call := range s.byDevice {
		f.ByDevice[string(dev)] = int(call)
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "calls-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
