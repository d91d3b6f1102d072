// Package historystore implements the append-range history collaborator
// from spec section 6.4: entries keyed by (target, nanotime), queryable
// via before/after/between/around/latest/targets. The interface is the
// collaborator boundary the core depends on; BadgerStore is the only
// concrete implementation, grounded on marmos91-dittofs's BadgerDB
// key-namespace-prefix design (pkg/metadata/store/badger/encoding.go)
// and its txn.NewIterator/ValidForPrefix range-scan pattern
// (pkg/metadata/store/badger/crud.go).
package historystore

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Entry is one stored message.
type Entry struct {
	MsgID    string    `json:"msgid"`
	Target   string    `json:"target"` // channel name or account name
	Sender   string    `json:"sender"` // nick!user@host or account
	Command  string    `json:"command"`
	Params   []string  `json:"params"`
	Time     time.Time `json:"time"`
}

// Store is the collaborator interface the core depends on, per spec
// section 6.4. All range queries are ascending-time order unless noted.
type Store interface {
	Append(e *Entry) error
	Before(target, msgid string, limit int) ([]Entry, error)
	After(target, msgid string, limit int) ([]Entry, error)
	Between(target, fromMsgID, toMsgID string, limit int) ([]Entry, error)
	Around(target, msgid string, limitEach int) ([]Entry, error)
	Latest(target string, limit int) ([]Entry, error)
	Targets(since, before time.Time) ([]string, error)
	Close() error
}

const (
	prefixEntry  = "h:" // h:<target>\x00<nanotime(8 bytes big-endian)><uuid>
	prefixTarget = "t:" // t:<nanotime(8 bytes)><target> -- secondary index for Targets()
)

// BadgerStore is the default Store implementation.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at dir.
func Open(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("historystore: open %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *BadgerStore) Close() error { return s.db.Close() }

func entryKey(target string, nanos int64, id uuid.UUID) []byte {
	key := make([]byte, 0, len(prefixEntry)+len(target)+1+8+16)
	key = append(key, prefixEntry...)
	key = append(key, target...)
	key = append(key, 0)
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], uint64(nanos))
	key = append(key, nb[:]...)
	idBytes, _ := id.MarshalBinary()
	key = append(key, idBytes...)
	return key
}

func entryKeyPrefix(target string) []byte {
	key := make([]byte, 0, len(prefixEntry)+len(target)+1)
	key = append(key, prefixEntry...)
	key = append(key, target...)
	key = append(key, 0)
	return key
}

func targetKey(nanos int64, target string) []byte {
	key := make([]byte, 0, len(prefixTarget)+8+len(target))
	key = append(key, prefixTarget...)
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], uint64(nanos))
	key = append(key, nb[:]...)
	key = append(key, target...)
	return key
}

// Append stores e, assigning e.MsgID (the hex-encoded storage key) if
// unset. MsgID being the key itself -- rather than an opaque id
// requiring a separate lookup index -- lets Before/After/Between seek
// directly without maintaining a msgid-to-key mapping table.
func (s *BadgerStore) Append(e *Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	key := entryKey(e.Target, e.Time.UnixNano(), id)
	e.MsgID = hex.EncodeToString(key)

	val, err := json.Marshal(*e)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, val); err != nil {
			return err
		}
		return txn.Set(targetKey(e.Time.UnixNano(), e.Target), nil)
	})
}

func decodeKey(msgid string) ([]byte, error) {
	key, err := hex.DecodeString(msgid)
	if err != nil {
		return nil, fmt.Errorf("historystore: malformed msgid %q: %w", msgid, err)
	}
	return key, nil
}

func (s *BadgerStore) scan(target string, seekKey []byte, reverse bool, limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := entryKeyPrefix(target)
		start := seekKey
		if start == nil {
			if reverse {
				start = append(append([]byte{}, prefix...), 0xff)
			} else {
				start = prefix
			}
		}

		for it.Seek(start); it.ValidForPrefix(prefix) && (limit <= 0 || len(out) < limit); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				out = append(out, e)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Before returns up to limit entries strictly preceding msgid, oldest
// first.
func (s *BadgerStore) Before(target, msgid string, limit int) ([]Entry, error) {
	key, err := decodeKey(msgid)
	if err != nil {
		return nil, err
	}
	entries, err := s.scan(target, key, true, limit+1)
	if err != nil {
		return nil, err
	}
	reverseInPlace(entries)
	trimToExclude(&entries, msgid)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// After returns up to limit entries strictly following msgid, oldest
// first.
func (s *BadgerStore) After(target, msgid string, limit int) ([]Entry, error) {
	key, err := decodeKey(msgid)
	if err != nil {
		return nil, err
	}
	// Seek lands on msgid itself (if still present); skip it.
	entries, err := s.scan(target, key, false, limit+1)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 && entries[0].MsgID == msgid {
		entries = entries[1:]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Between returns entries in [fromMsgID, toMsgID], oldest first.
func (s *BadgerStore) Between(target, fromMsgID, toMsgID string, limit int) ([]Entry, error) {
	fromKey, err := decodeKey(fromMsgID)
	if err != nil {
		return nil, err
	}
	entries, err := s.scan(target, fromKey, false, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
		if e.MsgID == toMsgID {
			break
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Around returns up to limitEach entries before and after msgid, plus
// msgid's own entry if present, oldest first.
func (s *BadgerStore) Around(target, msgid string, limitEach int) ([]Entry, error) {
	before, err := s.Before(target, msgid, limitEach)
	if err != nil {
		return nil, err
	}
	after, err := s.After(target, msgid, limitEach)
	if err != nil {
		return nil, err
	}
	center, err := s.entryByMsgID(target, msgid)
	if err != nil {
		return nil, err
	}
	out := before
	if center != nil {
		out = append(out, *center)
	}
	return append(out, after...), nil
}

func (s *BadgerStore) entryByMsgID(target, msgid string) (*Entry, error) {
	key, err := decodeKey(msgid)
	if err != nil {
		return nil, err
	}
	var e Entry
	found := false
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &e) })
	})
	if err != nil || !found {
		return nil, err
	}
	return &e, nil
}

// Latest returns the most recent limit entries, oldest first.
func (s *BadgerStore) Latest(target string, limit int) ([]Entry, error) {
	entries, err := s.scan(target, nil, true, limit)
	if err != nil {
		return nil, err
	}
	reverseInPlace(entries)
	return entries, nil
}

// Targets returns every target with at least one entry timestamped in
// [since, before).
func (s *BadgerStore) Targets(since, before time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		start := make([]byte, 0, len(prefixTarget)+8)
		start = append(start, prefixTarget...)
		var nb [8]byte
		binary.BigEndian.PutUint64(nb[:], uint64(since.UnixNano()))
		start = append(start, nb[:]...)

		for it.Seek(start); it.ValidForPrefix([]byte(prefixTarget)); it.Next() {
			key := it.Item().KeyCopy(nil)
			nanos := int64(binary.BigEndian.Uint64(key[len(prefixTarget) : len(prefixTarget)+8]))
			if nanos >= before.UnixNano() {
				break
			}
			target := string(key[len(prefixTarget)+8:])
			seen[target] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out, nil
}

func reverseInPlace(e []Entry) {
	for i, j := 0, len(e)-1; i < j; i, j = i+1, j-1 {
		e[i], e[j] = e[j], e[i]
	}
}

func trimToExclude(entries *[]Entry, msgid string) {
	out := (*entries)[:0]
	for _, e := range *entries {
		if e.MsgID == msgid {
			continue
		}
		out = append(out, e)
	}
	*entries = out
}
