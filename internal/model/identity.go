package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Identity carries both identifiers an entity can be addressed by.
// PersistentID is issued by the durable store on the first successful write
// and LegacyID is the small integer inherited from seed data or assigned by
// sequential insertion.  Neither value changes once set.
type Identity struct {
	PersistentID string `json:"persistentId,omitempty" yaml:"persistentId,omitempty"`
	LegacyID     int64  `json:"legacyId,omitempty" yaml:"legacyId,omitempty"`
}

// Ident exposes the identity so that every struct embedding Identity
// satisfies repository.Entity.
func (i *Identity) Ident() *Identity { return i }

// CanonicalID is the external string form of the identity: the persistent
// key when one exists, otherwise the decimal legacy key.
func (i Identity) CanonicalID() string {
	if i.PersistentID != "" {
		return i.PersistentID
	}
	if i.LegacyID > 0 {
		return strconv.FormatInt(i.LegacyID, 10)
	}
	return ""
}

// Empty reports whether neither identifier has been assigned yet.
func (i Identity) Empty() bool { return i.PersistentID == "" && i.LegacyID <= 0 }

// KeyKind tags which identity scheme a Key belongs to.
type KeyKind uint8

const (
	KeyInvalid KeyKind = iota
	KeyPersistent
	KeyLegacy
)

func (k KeyKind) String() string {
	switch k {
	case KeyPersistent:
		return "persistent"
	case KeyLegacy:
		return "legacy"
	}
	return "invalid"
}

// Key is a caller supplied identifier after shape detection.  Exactly one of
// the two payloads is meaningful, selected by Kind.
type Key struct {
	kind       KeyKind
	persistent string
	legacy     int64
}

// PersistentKey builds a Key for a persistent-store identifier.
func PersistentKey(id string) Key { return Key{kind: KeyPersistent, persistent: id} }

// LegacyKey builds a Key for a legacy numeric identifier.
func LegacyKey(id int64) Key { return Key{kind: KeyLegacy, legacy: id} }

func (k Key) Kind() KeyKind      { return k.kind }
func (k Key) Persistent() string { return k.persistent }
func (k Key) Legacy() int64      { return k.legacy }

func (k Key) String() string {
	switch k.kind {
	case KeyPersistent:
		return k.persistent
	case KeyLegacy:
		return strconv.FormatInt(k.legacy, 10)
	}
	return ""
}

// ParseKey classifies raw by shape.  The persistent shape is checked first,
// so a string that is both numeric and a valid UUID (32 decimal digits) is
// a persistent key.  Anything matching neither shape yields KeyInvalid.
func ParseKey(raw string) Key {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Key{}
	}
	if u, err := uuid.Parse(s); err == nil {
		return PersistentKey(u.String())
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return Key{}
	}
	return LegacyKey(n)
}

// NewPersistentID issues a fresh persistent key.
func NewPersistentID() string { return uuid.NewString() }
