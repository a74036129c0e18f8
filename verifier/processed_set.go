package verifier

import (
	"errors"
	"sync"

	"github.com/0xPolygon/proof-relay/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is what is known about an event id
type Record struct {
	Received          bool          `json:"received"`
	Sender            types.Address `json:"sender"`
	SourceBlockNumber uint64        `json:"sourceBlockNumber"`
}

// ProcessedSet is the set of event ids that were verified. It only grows.
type ProcessedSet interface {
	// Insert records id unless it is already present. It reports whether id was new.
	// Concurrent inserts of one id have exactly one winner.
	Insert(id types.Hash, rec *Record) (bool, error)
	// Get returns the record of id, or nil when it was never inserted
	Get(id types.Hash) (*Record, error)
	// Len returns the number of recorded ids
	Len() (int, error)
	Close() error
}

var (
	_ ProcessedSet = (*MemoryProcessedSet)(nil)
	_ ProcessedSet = (*BoltProcessedSet)(nil)
	_ ProcessedSet = (*LevelDBProcessedSet)(nil)
)

// MemoryProcessedSet keeps the processed ids in a map
type MemoryProcessedSet struct {
	lock    sync.RWMutex
	records map[types.Hash]Record
}

func NewMemoryProcessedSet() *MemoryProcessedSet {
	return &MemoryProcessedSet{records: map[types.Hash]Record{}}
}

func (m *MemoryProcessedSet) Insert(id types.Hash, rec *Record) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.records[id]; ok {
		return false, nil
	}

	m.records[id] = *rec

	return true, nil
}

func (m *MemoryProcessedSet) Get(id types.Hash) (*Record, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}

	return &rec, nil
}

func (m *MemoryProcessedSet) Len() (int, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.records), nil
}

func (m *MemoryProcessedSet) Close() error {
	return nil
}

var processedBucket = []byte("processed")

// BoltProcessedSet keeps the processed ids in a boltdb file
type BoltProcessedSet struct {
	db *bolt.DB
}

func NewBoltProcessedSet(dbFilePath string) (*BoltProcessedSet, error) {
	db, err := bolt.Open(dbFilePath, 0666, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(processedBucket)

		return err
	}); err != nil {
		db.Close()

		return nil, err
	}

	return &BoltProcessedSet{db: db}, nil
}

func (b *BoltProcessedSet) Insert(id types.Hash, rec *Record) (inserted bool, err error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	// bolt serializes writers, the check and the put share one transaction
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(processedBucket)
		if bucket.Get(id.Bytes()) != nil {
			return nil
		}

		inserted = true

		return bucket.Put(id.Bytes(), value)
	})

	return inserted, err
}

func (b *BoltProcessedSet) Get(id types.Hash) (result *Record, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(processedBucket).Get(id.Bytes())
		if value == nil {
			return nil
		}

		return json.Unmarshal(value, &result)
	})

	return result, err
}

func (b *BoltProcessedSet) Len() (n int, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(processedBucket).Stats().KeyN

		return nil
	})

	return n, err
}

func (b *BoltProcessedSet) Close() error {
	return b.db.Close()
}

var processedPrefix = []byte("processed-")

// LevelDBProcessedSet keeps the processed ids in a leveldb database
type LevelDBProcessedSet struct {
	lock sync.Mutex
	db   *leveldb.DB
}

func NewLevelDBProcessedSet(path string) (*LevelDBProcessedSet, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return NewLevelDBProcessedSetFrom(db), nil
}

// NewLevelDBProcessedSetFrom wraps an already opened leveldb instance
func NewLevelDBProcessedSetFrom(db *leveldb.DB) *LevelDBProcessedSet {
	return &LevelDBProcessedSet{db: db}
}

func processedKey(id types.Hash) []byte {
	return append(append([]byte{}, processedPrefix...), id.Bytes()...)
}

func (l *LevelDBProcessedSet) Insert(id types.Hash, rec *Record) (bool, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	key := processedKey(id)

	exists, err := l.db.Has(key, nil)
	if err != nil {
		return false, err
	}

	if exists {
		return false, nil
	}

	if err := l.db.Put(key, value, &opt.WriteOptions{Sync: true}); err != nil {
		return false, err
	}

	return true, nil
}

func (l *LevelDBProcessedSet) Get(id types.Hash) (*Record, error) {
	value, err := l.db.Get(processedKey(id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (l *LevelDBProcessedSet) Len() (int, error) {
	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	n := 0

	for ok := iter.Seek(processedPrefix); ok; ok = iter.Next() {
		if len(iter.Key()) < len(processedPrefix) || string(iter.Key()[:len(processedPrefix)]) != string(processedPrefix) {
			break
		}

		n++
	}

	return n, iter.Error()
}

func (l *LevelDBProcessedSet) Close() error {
	return l.db.Close()
}
