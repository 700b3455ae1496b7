package chat

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Room and message limits.
const (
	DefaultRoom       = "LOBBY"
	MaxRoomCodeLength = 12
	MaxTextLength     = 500
	UploadPrefix      = "/uploads/"
)

// Kind tells a text message from an image reference.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Message represents an accepted chat message.
type Message struct {
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Kind      Kind   `json:"type"`
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// RoomCount is one entry of the open-rooms list.
type RoomCount struct {
	Room  string `json:"room"`
	Count int    `json:"count"`
}

// NormalizeRoom uppercases a room code, strips everything outside [A-Z0-9]
// and truncates it. An empty result falls back to DefaultRoom. Uppercasing
// applies full case mappings, so "ß" becomes "SS".
func NormalizeRoom(input string) string {
	var b strings.Builder
	for _, r := range cases.Upper(language.Und).String(input) {
		if b.Len() == MaxRoomCodeLength {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return DefaultRoom
	}
	return b.String()
}

// IsRoomCode reports whether code is already in normalized form, that is
// one to MaxRoomCodeLength characters of [A-Z0-9].
func IsRoomCode(code string) bool {
	return code != "" && NormalizeRoom(code) == code
}

// TruncateText cuts text to MaxTextLength characters.
func TruncateText(text string) string {
	if utf8.RuneCountInString(text) <= MaxTextLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxTextLength])
}

// IsImageReference reports whether ref points into the public upload prefix.
func IsImageReference(ref string) bool {
	return len(ref) > len(UploadPrefix) && strings.HasPrefix(ref, UploadPrefix)
}
