package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"toneai/pkg/logger"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble"
)

const lockStripes = 256

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateRelationship = errors.New("relationship already exists")
	ErrInvalidInput          = errors.New("invalid input")
	ErrClosed                = errors.New("store closed")
)

type Options struct {
	DisableWAL bool
	// ReadOnly opens without write access; writes fail with pebble.ErrReadOnly.
	ReadOnly bool
	// Now overrides the clock used for created/updated timestamps.
	Now func() time.Time
}

// DB is the pebble backed relationship, profile and message store.
type DB struct {
	mu   sync.RWMutex
	db   *pebble.DB
	path string

	walDisabled bool
	now         func() time.Time

	// owners hash onto a fixed set of stripes
	ownerLocks [lockStripes]sync.Mutex

	// guards seq allocation and the last assigned timestamp
	msgMu  sync.Mutex
	seq    uint64
	lastTs int64
}

// opens/creates pebble DB at path and restores the message sequence
func Open(path string, opts Options) (*DB, error) {
	popts := &pebble.Options{
		DisableWAL: opts.DisableWAL,
		ReadOnly:   opts.ReadOnly,
	}
	if opts.DisableWAL && !opts.ReadOnly {
		logger.Warn("durability_disabled", "durability", "no WAL enabled")
	}
	pdb, err := pebble.Open(path, popts)
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	s := &DB{
		db:          pdb,
		path:        path,
		walDisabled: opts.DisableWAL,
		now:         opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	seq, lastTs, err := s.loadSeq()
	if err != nil {
		_ = pdb.Close()
		return nil, fmt.Errorf("load message sequence: %w", err)
	}
	s.seq = seq
	s.lastTs = lastTs
	logger.Info("store_opened", "path", path, "msg_seq", seq)
	return s, nil
}

// closes opened pebble DB
func (s *DB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	return nil
}

// returns true if DB is opened
func (s *DB) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

func (s *DB) Path() string { return s.path }

// Compact runs a manual compaction over the whole keyspace.
func (s *DB) Compact() error {
	pdb, err := s.handle()
	if err != nil {
		return err
	}
	start := []byte{0x00}
	end := []byte{0xff, 0xff, 0xff, 0xff}
	return pdb.Compact(start, end, true)
}

// Metrics exposes pebble's internal metrics.
func (s *DB) Metrics() *pebble.Metrics {
	pdb, err := s.handle()
	if err != nil {
		return nil
	}
	return pdb.Metrics()
}

func (s *DB) handle() (*pebble.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// chooses sync/no-sync WriteOptions, always disables sync if WAL disabled
func (s *DB) writeOpt(requestSync bool) *pebble.WriteOptions {
	if requestSync && !s.walDisabled {
		return pebble.Sync
	}
	return pebble.NoSync
}

// returns the stripe guarding ownerID's relationships
func (s *DB) ownerLock(ownerID string) *sync.Mutex {
	return &s.ownerLocks[xxhash.Sum64String(ownerID)%lockStripes]
}

// get copies the value out before releasing pebble's buffer
func (s *DB) get(key []byte) ([]byte, error) {
	pdb, err := s.handle()
	if err != nil {
		return nil, err
	}
	v, closer, err := pdb.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

// meta:msg_seq holds the last seq and, after it, the last assigned
// timestamp; older 8 byte values carry the seq only
func (s *DB) loadSeq() (uint64, int64, error) {
	v, err := s.get([]byte(messageSeqKey))
	if errors.Is(err, ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	switch len(v) {
	case 8:
		return binary.BigEndian.Uint64(v), 0, nil
	case 16:
		return binary.BigEndian.Uint64(v[:8]), int64(binary.BigEndian.Uint64(v[8:])), nil
	default:
		return 0, 0, fmt.Errorf("corrupt sequence value (%d bytes)", len(v))
	}
}

func encodeSeq(seq uint64, ts int64) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seq)
	binary.BigEndian.PutUint64(buf[8:], uint64(ts))
	return buf[:]
}

// iterates all keys under prefix in ascending order until fn returns false
func (s *DB) scan(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	pdb, err := s.handle()
	if err != nil {
		return err
	}
	iter, err := pdb.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		more, ferr := fn(iter.Key(), iter.Value())
		if ferr != nil {
			return ferr
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

// Stats is a point-in-time count of stored records.
type Stats struct {
	Contacts int `json:"contacts"`
	Users    int `json:"users"`
	Messages int `json:"messages"`
}

// counts records per keyspace; full scan, meant for admin use
func (s *DB) Stats() (Stats, error) {
	var st Stats
	count := func(prefix string, n *int) error {
		return s.scan([]byte(prefix), func(_, _ []byte) (bool, error) {
			*n++
			return true, nil
		})
	}
	if err := count(contactPrefix, &st.Contacts); err != nil {
		return st, err
	}
	if err := count(userPrefix, &st.Users); err != nil {
		return st, err
	}
	if err := count(messageIndexPrefix, &st.Messages); err != nil {
		return st, err
	}
	return st, nil
}
