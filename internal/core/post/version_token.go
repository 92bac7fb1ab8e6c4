// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
)

const versionTokenPrefix = "0x"

// VersionToken is the opaque optimistic-concurrency stamp of a stored post.
//
// The domain never interprets the bytes; storage produces them and compares
// them on write. On the wire a token is "0x" followed by upper-case hex.
type VersionToken struct{ raw []byte }

// NewVersionToken wraps a copy of raw.
func NewVersionToken(raw []byte) VersionToken {
	return VersionToken{raw: bytes.Clone(raw)}
}

// ParseVersionToken decodes a "0x"-prefixed hex string. The prefix and the
// digits are case-insensitive; an odd number of digits is rejected.
func ParseVersionToken(text string) (VersionToken, error) {
	if len(text) < len(versionTokenPrefix) || !strings.EqualFold(text[:len(versionTokenPrefix)], versionTokenPrefix) {
		return VersionToken{}, invalidVersionToken("Must start with 0x")
	}

	digits := text[len(versionTokenPrefix):]
	if len(digits)%2 != 0 {
		return VersionToken{}, invalidVersionToken("Must contain an even number of hex digits")
	}

	raw, err := hex.DecodeString(digits)
	if err != nil {
		return VersionToken{}, invalidVersionToken("Must contain only hex digits")
	}

	return VersionToken{raw: raw}, nil
}

// Bytes returns a copy of the token bytes.
func (token VersionToken) Bytes() []byte { return bytes.Clone(token.raw) }

func (token VersionToken) IsZero() bool { return len(token.raw) == 0 }

func (token VersionToken) Equal(other VersionToken) bool {
	return bytes.Equal(token.raw, other.raw)
}

func (token VersionToken) String() string {
	return versionTokenPrefix + strings.ToUpper(hex.EncodeToString(token.raw))
}

// MarshalText implements [encoding.TextMarshaler].
func (token VersionToken) MarshalText() ([]byte, error) {
	return []byte(token.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (token *VersionToken) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionToken(string(text))
	if err != nil {
		return err
	}
	*token = parsed
	return nil
}

func invalidVersionToken(message string) error {
	return apperr.ValidationError("Invalid version token", apperr.FieldError{Field: "version", Message: message})
}
