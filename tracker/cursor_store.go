package tracker

import (
	"sync"

	"github.com/0xPolygon/proof-relay/helper/common"
	bolt "go.etcd.io/bbolt"
)

// CursorStore persists the last block each poller handed off
type CursorStore interface {
	// Cursor returns the last handed off block of the named poller
	Cursor(name string) (uint64, bool, error)
	SetCursor(name string, block uint64) error
	Close() error
}

var (
	_ CursorStore = (*MemoryCursorStore)(nil)
	_ CursorStore = (*BoltCursorStore)(nil)
)

type MemoryCursorStore struct {
	lock    sync.RWMutex
	cursors map[string]uint64
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: map[string]uint64{}}
}

func (m *MemoryCursorStore) Cursor(name string) (uint64, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	block, ok := m.cursors[name]

	return block, ok, nil
}

func (m *MemoryCursorStore) SetCursor(name string, block uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.cursors[name] = block

	return nil
}

func (m *MemoryCursorStore) Close() error {
	return nil
}

var dbCursors = []byte("cursors")

// BoltCursorStore keeps the cursors in a boltdb file
type BoltCursorStore struct {
	conn *bolt.DB
}

func NewBoltCursorStore(path string) (*BoltCursorStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	store := &BoltCursorStore{conn: db}

	if err := store.setupDB(); err != nil {
		store.Close()

		return nil, err
	}

	return store, nil
}

func (b *BoltCursorStore) setupDB() error {
	return b.conn.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dbCursors)

		return err
	})
}

func (b *BoltCursorStore) Cursor(name string) (block uint64, found bool, err error) {
	err = b.conn.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(dbCursors).Get([]byte(name))
		if value == nil {
			return nil
		}

		block, found = common.EncodeBytesToUint64(value), true

		return nil
	})

	return block, found, err
}

func (b *BoltCursorStore) SetCursor(name string, block uint64) error {
	return b.conn.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dbCursors).Put([]byte(name), common.EncodeUint64ToBytes(block))
	})
}

func (b *BoltCursorStore) Close() error {
	return b.conn.Close()
}
