package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"yieldplus/core/types"
	"yieldplus/storage"
)

// Manager provides journaled key/value access to ledger state. Writes are
// buffered in memory until Commit flushes them to the backing database in a
// single batch; every write and emitted event is journaled so an action can
// be rolled back to a snapshot.
type Manager struct {
	db      storage.Database
	dirty   map[string][]byte
	journal []journalEntry
	events  []*types.Event
}

type journalEntry struct {
	key     string
	prev    []byte
	hadPrev bool
	event   bool
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:    db,
		dirty: make(map[string][]byte),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Snapshot returns an identifier that RevertToSnapshot can roll back to.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot undoes every write and event recorded after the snapshot
// was taken.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.event {
			if n := len(m.events); n > 0 {
				m.events = m.events[:n-1]
			}
			continue
		}
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:id]
}

// Atomic runs fn and reverts every change it made when it returns an error.
func (m *Manager) Atomic(fn func() error) error {
	id := m.Snapshot()
	if err := fn(); err != nil {
		m.RevertToSnapshot(id)
		return err
	}
	return nil
}

// Commit flushes buffered writes to the database. Pending events stay queued
// until DrainEvents is called.
func (m *Manager) Commit() error {
	if len(m.dirty) == 0 {
		m.journal = nil
		return nil
	}
	batch := storage.NewBatch()
	for key, value := range m.dirty {
		if value == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), value)
	}
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.dirty = make(map[string][]byte)
	m.journal = nil
	return nil
}

// Discard drops every uncommitted write and event.
func (m *Manager) Discard() {
	m.dirty = make(map[string][]byte)
	m.journal = nil
	m.events = nil
}

// AppendEvent records an event. Events are journaled alongside writes and
// disappear when the surrounding snapshot is reverted.
func (m *Manager) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.events = append(m.events, evt)
	m.journal = append(m.journal, journalEntry{event: true})
}

// Events returns the events recorded since the last drain.
func (m *Manager) Events() []*types.Event {
	out := make([]*types.Event, len(m.events))
	copy(out, m.events)
	return out
}

// DrainEvents returns and clears the pending events.
func (m *Manager) DrainEvents() []*types.Event {
	out := m.events
	m.events = nil
	return out
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	if value, ok := m.dirty[string(hashed)]; ok {
		return value, nil
	}
	value, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (m *Manager) write(hashed []byte, value []byte) {
	key := string(hashed)
	prev, hadPrev := m.dirty[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadPrev: hadPrev})
	m.dirty[key] = value
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.write(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.write(kvKey(key), nil)
	return nil
}

func (m *Manager) getByteList(hashed []byte) ([][]byte, error) {
	data, err := m.read(hashed)
	if err != nil {
		return nil, err
	}
	var list [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (m *Manager) putByteList(hashed []byte, list [][]byte) error {
	if len(list) == 0 {
		m.write(hashed, nil)
		return nil
	}
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	m.write(hashed, encoded)
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	list, err := m.getByteList(hashed)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.putByteList(hashed, list)
}

// KVRemove deletes value from the byte slice list stored under key, keeping
// the order of the remaining entries.
func (m *Manager) KVRemove(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	list, err := m.getByteList(hashed)
	if err != nil {
		return err
	}
	kept := list[:0]
	removed := false
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return nil
	}
	return m.putByteList(hashed, kept)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}
