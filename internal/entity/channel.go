package entity

import (
	"strings"

	"github.com/google/uuid"
)

// Channel is the origin of a customer contact.
type Channel string

const (
	ChannelWeb     Channel = "WEB"
	ChannelLine    Channel = "LINE"
	ChannelFB      Channel = "FB"
	ChannelIG      Channel = "IG"
	ChannelUnknown Channel = "UNKNOWN"
)

// genericIdentifierLen is the length below which a WEB_ identifier is considered auto-generated.
const genericIdentifierLen = 15

// ParseChannel normalises free-form channel names; unrecognised values map to ChannelUnknown.
func ParseChannel(raw string) Channel {
	switch Channel(strings.ToUpper(strings.TrimSpace(raw))) {
	case ChannelWeb, "":
		return ChannelWeb
	case ChannelLine:
		return ChannelLine
	case ChannelFB, "FACEBOOK":
		return ChannelFB
	case ChannelIG, "INSTAGRAM":
		return ChannelIG
	default:
		return ChannelUnknown
	}
}

// IsWeb reports whether c is the generic web channel.
func (c Channel) IsWeb() bool { return c == ChannelWeb }

// Identifier composes <CHANNEL>_<id>; an empty id yields a random 8-hex suffix.
func (c Channel) Identifier(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	prefix := string(c) + "_"
	if strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// ChannelOf extracts the channel from a stored identifier.
func ChannelOf(identifier string) Channel {
	prefix, _, ok := strings.Cut(identifier, "_")
	if !ok {
		return ChannelUnknown
	}
	return ParseChannel(prefix)
}

// UserIDOf strips the channel prefix from identifier.
func UserIDOf(identifier string) string {
	_, id, ok := strings.Cut(identifier, "_")
	if !ok {
		return identifier
	}
	return id
}

// IsGenericIdentifier reports whether identifier was auto-generated from a
// web or phone fallback rather than a genuine channel id.
func IsGenericIdentifier(identifier string) bool {
	switch {
	case identifier == "":
		return true
	case strings.HasPrefix(identifier, string(ChannelUnknown)+"_"):
		return true
	case strings.HasPrefix(identifier, string(ChannelWeb)+"_"):
		return len(identifier) < genericIdentifierLen
	default:
		return false
	}
}
