package appstore

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/core"
	"github.com/vibephone/switchboard/internal/protocol"
)

// HandleFrame answers the app distribution frames on a live connection.
// These are legal before identification; the exchange routes them here
// without consulting session state.
func (s *Store) HandleFrame(conn core.Conn, tag protocol.FrameType, data []byte) {
	switch tag {
	case protocol.TAppsList:
		s.reply(conn, struct {
			T    protocol.FrameType `json:"t"`
			Apps []Manifest         `json:"apps"`
		}{protocol.TAppsList, s.List()})

	case protocol.TAppManifest:
		id, ok := frameID(data)
		if !ok {
			return
		}
		m, err := s.Manifest(id)
		if err != nil {
			s.reply(conn, manifestResp{T: protocol.TAppManifest, ID: id, Error: "not_found"})
			return
		}
		s.reply(conn, manifestResp{T: protocol.TAppManifest, ID: id, OK: true, Manifest: m})

	case protocol.TAppFetch:
		id, ok := frameID(data)
		if !ok {
			return
		}
		m, err := s.Manifest(id)
		if err != nil {
			s.reply(conn, fetchResp{T: protocol.TAppFetch, ID: id, Error: "not_found"})
			return
		}
		files, err := s.Files(id)
		if err != nil {
			s.reply(conn, fetchResp{T: protocol.TAppFetch, ID: id, Error: "not_found"})
			return
		}
		s.reply(conn, fetchResp{T: protocol.TAppFetch, ID: id, OK: true, Manifest: m, Files: files})
	}
}

type manifestResp struct {
	T        protocol.FrameType `json:"t"`
	ID       string             `json:"id"`
	OK       bool               `json:"ok"`
	Manifest *Manifest          `json:"manifest,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type fetchResp struct {
	T        protocol.FrameType `json:"t"`
	ID       string             `json:"id"`
	OK       bool               `json:"ok"`
	Manifest *Manifest          `json:"manifest,omitempty"`
	Files    map[string]string  `json:"files,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func frameID(data []byte) (string, bool) {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ID == "" {
		return "", false
	}
	return p.ID, true
}

func (s *Store) reply(conn core.Conn, v any) {
	f, err := protocol.Encode(v)
	if err != nil {
		log.Error().Str("module", "appstore").Err(err).Msg("encode reply")
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Warn().Str("module", "appstore").Err(err).Msg("dropped reply for slow connection")
	}
}
