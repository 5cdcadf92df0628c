package metadata

import (
	"encoding/base32"
	"net/url"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"yieldplus/native/common"
)

// ValueType is the declared type of a metadata value.
type ValueType string

const (
	TypeString   ValueType = "string"
	TypeInteger  ValueType = "integer"
	TypeURL      ValueType = "url"
	TypeIPFS     ValueType = "ipfs"
	TypeName     ValueType = "name"
	TypeCategory ValueType = "category"
)

const (
	// MaxValueBytes bounds every metadata value except descriptions.
	MaxValueBytes = 256
	// MaxDescriptionBytes bounds the "description" value.
	MaxDescriptionBytes = 10240
	descriptionKey      = "description"
	maxNameLength       = 12
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeURL, TypeIPFS, TypeName, TypeCategory:
		return true
	default:
		return false
	}
}

// MetaKey declares a permitted metadata key.
type MetaKey struct {
	Key         string
	Required    bool
	Type        ValueType
	Description string
}

// Category is a label protocols file themselves under.
type Category struct {
	Name        string
	Description string
}

// Entry is one metadata value tagged with the type it was validated as.
type Entry struct {
	Key   string
	Type  ValueType
	Value string
}

// Pair is an untyped key/value as supplied by callers.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Keys lists the keys of the entries in order.
func Keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// Lookup returns the value stored under key.
func Lookup(entries []Entry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// IsName reports whether s is a valid account name: up to 12 characters
// from a-z, 1-5 and '.', not ending with '.'.
func IsName(s string) bool {
	if s == "" || len(s) > maxNameLength || strings.HasSuffix(s, ".") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '1' && r <= '5', r == '.':
		default:
			return false
		}
	}
	return true
}

func checkValue(t ValueType, key, value string) error {
	switch t {
	case TypeString, TypeCategory:
		return nil
	case TypeInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return common.Invalid("[key=%s] value %q is not a valid integer", key, value)
		}
	case TypeURL:
		u, err := url.ParseRequestURI(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return common.Invalid("[key=%s] value %q is not a valid url", key, value)
		}
	case TypeIPFS:
		if !isCID(value) {
			return common.Invalid("[key=%s] value %q is not a valid IPFS CID", key, value)
		}
	case TypeName:
		if !IsName(value) {
			return common.Invalid("[key=%s] value %q is not a valid name", key, value)
		}
	default:
		return common.Invalid("[key=%s] has unknown type %q", key, t)
	}
	return nil
}

var cidv1Encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// isCID accepts base58 CIDv0 ("Qm...", a sha2-256 multihash) and base32
// CIDv1 ("b...").
func isCID(value string) bool {
	if strings.HasPrefix(value, "Qm") && len(value) == 46 {
		raw := base58.Decode(value)
		return len(raw) == 34 && raw[0] == 0x12 && raw[1] == 0x20
	}
	if strings.HasPrefix(value, "b") && len(value) > 8 {
		raw, err := cidv1Encoding.DecodeString(strings.ToUpper(value[1:]))
		return err == nil && len(raw) > 2 && raw[0] == 0x01
	}
	return false
}
