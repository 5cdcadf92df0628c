package metadata

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"yieldplus/native/common"
)

type storeState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	metakeyPrefix    = "metadata/metakey/"
	categoryPrefix   = "metadata/category/"
	metakeyIndexKey  = []byte("metadata/metakeys")
	categoryIndexKey = []byte("metadata/categories")
)

func metakeyKey(key string) []byte   { return []byte(metakeyPrefix + key) }
func categoryKey(name string) []byte { return []byte(categoryPrefix + name) }

// Store is the schema of permitted metadata keys and the category list,
// administered by a single owner account.
type Store struct {
	st    storeState
	owner string
}

// NewStore binds the store to state. owner is the account allowed to edit
// the schema.
func NewStore(st storeState, owner string) *Store {
	return &Store{st: st, owner: owner}
}

// Owner returns the administering account.
func (s *Store) Owner() string { return s.owner }

// SetMetaKey creates or replaces a metadata key declaration.
func (s *Store) SetMetaKey(signers common.Signers, mk MetaKey) error {
	if err := common.RequireAuth(signers, s.owner); err != nil {
		return err
	}
	mk.Key = strings.TrimSpace(mk.Key)
	if !IsName(mk.Key) {
		return common.Invalid("[key=%s] is not a valid name", mk.Key)
	}
	if mk.Type == "" {
		mk.Type = TypeString
	}
	if !mk.Type.Valid() {
		return common.Invalid("[key=%s] has unknown type %q", mk.Key, mk.Type)
	}
	if err := s.st.KVPut(metakeyKey(mk.Key), mk); err != nil {
		return err
	}
	return s.st.KVAppend(metakeyIndexKey, []byte(mk.Key))
}

// DelMetaKey removes a key declaration. Records already carrying the key
// must drop it on their next edit.
func (s *Store) DelMetaKey(signers common.Signers, key string) error {
	if err := common.RequireAuth(signers, s.owner); err != nil {
		return err
	}
	if _, ok, err := s.MetaKey(key); err != nil {
		return err
	} else if !ok {
		return common.Missing("metakey", key)
	}
	if err := s.st.KVDelete(metakeyKey(key)); err != nil {
		return err
	}
	return s.st.KVRemove(metakeyIndexKey, []byte(key))
}

// SetCategory creates or replaces a category.
func (s *Store) SetCategory(signers common.Signers, c Category) error {
	if err := common.RequireAuth(signers, s.owner); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	if !IsName(c.Name) {
		return common.Invalid("[category=%s] is not a valid name", c.Name)
	}
	if err := s.st.KVPut(categoryKey(c.Name), c); err != nil {
		return err
	}
	return s.st.KVAppend(categoryIndexKey, []byte(c.Name))
}

// DelCategory removes a category.
func (s *Store) DelCategory(signers common.Signers, name string) error {
	if err := common.RequireAuth(signers, s.owner); err != nil {
		return err
	}
	if _, ok, err := s.Category(name); err != nil {
		return err
	} else if !ok {
		return common.Missing("category", name)
	}
	if err := s.st.KVDelete(categoryKey(name)); err != nil {
		return err
	}
	return s.st.KVRemove(categoryIndexKey, []byte(name))
}

// MetaKey returns the declaration for key.
func (s *Store) MetaKey(key string) (MetaKey, bool, error) {
	var mk MetaKey
	if key == "" {
		return mk, false, nil
	}
	ok, err := s.st.KVGet(metakeyKey(key), &mk)
	return mk, ok, err
}

// Category returns the named category.
func (s *Store) Category(name string) (Category, bool, error) {
	var c Category
	if name == "" {
		return c, false, nil
	}
	ok, err := s.st.KVGet(categoryKey(name), &c)
	return c, ok, err
}

// MetaKeys lists every declared key in declaration order.
func (s *Store) MetaKeys() ([]MetaKey, error) {
	var names [][]byte
	if err := s.st.KVGetList(metakeyIndexKey, &names); err != nil {
		return nil, err
	}
	out := make([]MetaKey, 0, len(names))
	for _, n := range names {
		mk, ok, err := s.MetaKey(string(n))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, mk)
		}
	}
	return out, nil
}

// Categories lists every category in declaration order.
func (s *Store) Categories() ([]Category, error) {
	var names [][]byte
	if err := s.st.KVGetList(categoryIndexKey, &names); err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(names))
	for _, n := range names {
		c, ok, err := s.Category(string(n))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// RequireCategory fails unless the category exists.
func (s *Store) RequireCategory(name string) error {
	_, ok, err := s.Category(name)
	if err != nil {
		return err
	}
	if !ok {
		return common.Invalid("[category=%s] is not valid", name)
	}
	return nil
}

// Validate checks a complete metadata set against the schema and returns it
// as typed entries in the order supplied.
func (s *Store) Validate(pairs []Pair) ([]Entry, error) {
	entries := make([]Entry, 0, len(pairs))
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		key := strings.TrimSpace(p.Key)
		if _, dup := seen[key]; dup {
			return nil, common.Invalid("[key=%s] is duplicated", key)
		}
		seen[key] = struct{}{}
		entry, err := s.entry(key, p.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	schema, err := s.MetaKeys()
	if err != nil {
		return nil, err
	}
	for _, mk := range schema {
		if !mk.Required {
			continue
		}
		if v, ok := Lookup(entries, mk.Key); !ok || v == "" {
			return nil, common.Invalid("[key=%s] is required and missing", mk.Key)
		}
	}
	return entries, nil
}

func (s *Store) entry(key, value string) (Entry, error) {
	mk, ok, err := s.MetaKey(key)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, common.Invalid("[key=%s] is not valid", key)
	}
	// Values are stored in NFC so equal text has one byte form.
	value = norm.NFC.String(value)
	limit := MaxValueBytes
	if key == descriptionKey {
		limit = MaxDescriptionBytes
	}
	if len(value) > limit {
		return Entry{}, common.Invalid("value exceeds %d bytes [key=%s]", limit, key)
	}
	if err := checkValue(mk.Type, key, value); err != nil {
		return Entry{}, err
	}
	if mk.Type == TypeCategory {
		if err := s.RequireCategory(value); err != nil {
			return Entry{}, err
		}
	}
	return Entry{Key: key, Type: mk.Type, Value: value}, nil
}

// Apply sets (value non-nil) or erases (value nil) one key of an existing
// metadata set and revalidates the result.
func (s *Store) Apply(current []Entry, key string, value *string) ([]Entry, error) {
	pairs := make([]Pair, 0, len(current)+1)
	found := false
	for _, e := range current {
		if e.Key != key {
			pairs = append(pairs, Pair{Key: e.Key, Value: e.Value})
			continue
		}
		found = true
		if value != nil {
			pairs = append(pairs, Pair{Key: key, Value: *value})
		}
	}
	if !found {
		if value == nil {
			return nil, fmt.Errorf("%w: [key=%s] is not set", common.ErrNotFound, key)
		}
		pairs = append(pairs, Pair{Key: key, Value: *value})
	}
	return s.Validate(pairs)
}
