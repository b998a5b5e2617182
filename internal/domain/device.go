// Package domain contains entity types without logic, just meta-data.
package domain

import (
	"strings"
	"unicode/utf8"
)

// DeviceID is the client-presented identifier a call id is keyed on. Empty
// means the connection never identified a device.
type DeviceID string

const (
	MaxDeviceIDLen = 80
	MaxNameLen     = 24
	MaxTextLen     = 240
)

// CleanDeviceID trims and clamps a raw device identifier from the wire.
func CleanDeviceID(raw string) DeviceID {
	return DeviceID(clamp(strings.TrimSpace(raw), MaxDeviceIDLen))
}

// CleanName trims and clamps a display name from the wire.
func CleanName(raw string) string {
	return clamp(strings.TrimSpace(raw), MaxNameLen)
}

// CleanText trims and clamps a chat or dm body from the wire.
func CleanText(raw string) string {
	return clamp(strings.TrimSpace(raw), MaxTextLen)
}

// clamp cuts s to at most max bytes without splitting a multibyte rune;
// a split tail would be rewritten to U+FFFD on every outbound encode.
func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
