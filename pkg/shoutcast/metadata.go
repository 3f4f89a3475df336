package shoutcast

import (
	"strings"
)

// Metadata holds the fields of an ICY metadata block.
type Metadata struct {
	StreamTitle string
	StreamURL   string
}

// NewMetadata parses a raw metadata block such as
// "StreamTitle='Artist - Title';StreamUrl='';" padded with NUL bytes.
func NewMetadata(b []byte) *Metadata {
	m := &Metadata{}

	raw := strings.TrimRight(string(b), "\x00")
	for _, field := range strings.Split(raw, "';") {
		key, value, ok := strings.Cut(field, "='")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case "StreamTitle":
			m.StreamTitle = value
		case "StreamUrl":
			m.StreamURL = value
		}
	}

	return m
}

// Equals compares two metadata blocks; a nil block only equals another nil.
func (m *Metadata) Equals(other *Metadata) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.StreamTitle == other.StreamTitle && m.StreamURL == other.StreamURL
}
