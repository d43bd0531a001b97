package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind KeyKind
		want string
	}{
		{"canonical uuid", "0b7c0d6e-5f1a-4b35-9c47-3a1f2a9d8e10", KeyPersistent, "0b7c0d6e-5f1a-4b35-9c47-3a1f2a9d8e10"},
		{"uuid is canonicalised", "0B7C0D6E5F1A4B359C473A1F2A9D8E10", KeyPersistent, "0b7c0d6e-5f1a-4b35-9c47-3a1f2a9d8e10"},
		{"numeric and uuid shaped prefers persistent", "12345678901234567890123456789012", KeyPersistent, "12345678-9012-3456-7890-123456789012"},
		{"legacy integer", "42", KeyLegacy, "42"},
		{"legacy with spaces", " 7 ", KeyLegacy, "7"},
		{"zero", "0", KeyInvalid, ""},
		{"negative", "-3", KeyInvalid, ""},
		{"word", "Berlin", KeyInvalid, ""},
		{"empty", "", KeyInvalid, ""},
		{"float", "1.5", KeyInvalid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := ParseKey(tt.raw)
			assert.Equal(t, tt.kind, k.Kind())
			assert.Equal(t, tt.want, k.String())
		})
	}
}

func TestParseKeyLegacyPayload(t *testing.T) {
	k := ParseKey("42")
	require.Equal(t, KeyLegacy, k.Kind())
	assert.Equal(t, int64(42), k.Legacy())
	assert.Empty(t, k.Persistent())
}

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "abc", Identity{PersistentID: "abc", LegacyID: 3}.CanonicalID())
	assert.Equal(t, "3", Identity{LegacyID: 3}.CanonicalID())
	assert.Equal(t, "", Identity{}.CanonicalID())
	assert.True(t, Identity{}.Empty())
	assert.False(t, Identity{LegacyID: 1}.Empty())
}

func TestNewPersistentIDParsesAsPersistent(t *testing.T) {
	id := NewPersistentID()
	assert.Equal(t, KeyPersistent, ParseKey(id).Kind())
	assert.NotEqual(t, id, NewPersistentID())
}
