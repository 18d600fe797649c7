// Package cache memoizes analysis payloads keyed by the input text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/shamaton/msgpack/v2"

	"github.com/readmaker/corebridge/types"
)

const (
	keyPrefix = "analysis/"
	// dbName is the goleveldb directory name under CacheOptions.Dir.
	dbName = "readmaker_analysis"
)

type entry struct {
	Payload  string `msgpack:"payload"`
	Backend  string `msgpack:"backend"`
	StoredAt int64  `msgpack:"stored_at"`
}

// Store is a result cache on top of a cometbft-db database.
type Store struct {
	db dbm.DB

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Metrics counts cache lookups.
type Metrics struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Open creates the store selected by opts.
func Open(opts types.CacheOptions) (*Store, error) {
	switch opts.Backend {
	case types.CacheMemDB, "":
		return New(dbm.NewMemDB()), nil
	case types.CacheGoLevelDB:
		db, err := dbm.NewDB(dbName, dbm.GoLevelDBBackend, opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("could not open cache in %s: %w", opts.Dir, err)
		}
		return New(db), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// New wraps an open database.
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// Key returns the database key for text.
func Key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte(keyPrefix + hex.EncodeToString(sum[:]))
}

// Get returns the cached payload for text. A miss is not an error.
func (s *Store) Get(text string) (string, bool, error) {
	bz, err := s.db.Get(Key(text))
	if err != nil {
		s.misses.Add(1)
		return "", false, err
	}
	if bz == nil {
		s.misses.Add(1)
		return "", false, nil
	}
	var e entry
	if err := msgpack.Unmarshal(bz, &e); err != nil {
		s.misses.Add(1)
		return "", false, fmt.Errorf("corrupt cache entry: %w", err)
	}
	s.hits.Add(1)
	return e.Payload, true, nil
}

// Put stores payload as the analysis of text.
func (s *Store) Put(text, payload string, backend types.Backend) error {
	bz, err := msgpack.Marshal(entry{
		Payload:  payload,
		Backend:  string(backend),
		StoredAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return s.db.Set(Key(text), bz)
}

func (s *Store) Metrics() Metrics {
	return Metrics{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (s *Store) Close() error {
	return s.db.Close()
}
