package store

import (
	"encoding/binary"
	"errors"
	"path/filepath"

	"github.com/canopy-network/sortition/lib"
	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	paramsPrefix     = []byte("p/") // prefix designated for sortition parameter changes keyed by period
	efficiencyPrefix = []byte("e/") // prefix designated for dag efficiency samples keyed by period
	finalizedKey     = []byte("f/") // key designated for the last finalized period

	_ lib.ParamsStoreI = &Store{} // enforce the store interface
)

/*
The Store persists the history of the consensus-critical sortition parameters on top of a single BadgerDB instance.

1. Params changes: every adjustment of the sortition parameters is saved under the period it takes effect from.
   Keys are big endian periods, so a reverse seek from a period yields the parameters in effect at that period.

2. Efficiency samples: the DAG efficiency measured at a period. The most recent samples feed the next adjustment
   and must survive a restart so the averaging window is not reset.

3. Last finalized period: the most recent period applied to the history, so a replayed period is not applied twice.

Values are RLP encoded, matching the wire format of the sortition records.
*/

type Store struct {
	db  *badger.DB  // underlying database
	log lib.LoggerI // logger
}

// New() creates a new instance of a Store using the data directory from the config
func New(config lib.StoreConfig, log lib.LoggerI) (*Store, lib.ErrorI) {
	opts := badger.DefaultOptions(filepath.Join(config.DataDirPath, config.DBName)).
		WithInMemory(config.InMemory).
		WithLoggingLevel(badger.ERROR)
	if config.InMemory {
		opts.Dir, opts.ValueDir = "", ""
	}
	if config.MemTableSize > 0 {
		opts = opts.WithMemTableSize(config.MemTableSize)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, lib.ErrOpenDB(err)
	}
	return &Store{db: db, log: log.WithModule("store")}, nil
}

// NewMemoryStore() creates a non-persistent Store, used for testing
func NewMemoryStore(log lib.LoggerI) (*Store, lib.ErrorI) {
	return New(lib.StoreConfig{InMemory: true}, log)
}

// SetParamsChange() saves the params in effect from change.Period
func (s *Store) SetParamsChange(change lib.ParamsChange) lib.ErrorI {
	bz, err := rlp.EncodeToBytes(change.Params)
	if err != nil {
		return lib.ErrStoreSet(err)
	}
	return s.set(periodKey(paramsPrefix, change.Period), bz)
}

// GetParamsChange() returns the latest change at or before a period, or nil if there is none
func (s *Store) GetParamsChange(period uint64) (*lib.ParamsChange, lib.ErrorI) {
	var change *lib.ParamsChange
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Reverse: true, Prefix: paramsPrefix})
		defer it.Close()
		// a reverse seek lands on the largest key <= the target
		it.Seek(periodKey(paramsPrefix, period))
		if !it.ValidForPrefix(paramsPrefix) {
			return nil
		}
		c, e := decodeParamsChange(it.Item())
		change = c
		return e
	})
	if err != nil {
		return nil, asStoreError(err)
	}
	return change, nil
}

// LatestParamsChange() returns the most recent change, or nil if there is none
func (s *Store) LatestParamsChange() (*lib.ParamsChange, lib.ErrorI) {
	return s.GetParamsChange(^uint64(0))
}

// SetEfficiency() saves an efficiency sample for a period
func (s *Store) SetEfficiency(period uint64, efficiency uint16) lib.ErrorI {
	bz, err := rlp.EncodeToBytes(efficiency)
	if err != nil {
		return lib.ErrStoreSet(err)
	}
	return s.set(periodKey(efficiencyPrefix, period), bz)
}

// GetEfficiencies() returns up to `limit` of the most recent samples, oldest first
func (s *Store) GetEfficiencies(limit int) (samples []uint16, e lib.ErrorI) {
	if limit <= 0 {
		return nil, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Reverse: true, Prefix: efficiencyPrefix})
		defer it.Close()
		for it.Seek(periodKey(efficiencyPrefix, ^uint64(0))); it.ValidForPrefix(efficiencyPrefix) && len(samples) < limit; it.Next() {
			bz, err := it.Item().ValueCopy(nil)
			if err != nil {
				return lib.ErrStoreIterate(err)
			}
			var sample uint16
			if err = rlp.DecodeBytes(bz, &sample); err != nil {
				return lib.ErrDecodeRecord(err)
			}
			samples = append(samples, sample)
		}
		return nil
	})
	if err != nil {
		return nil, asStoreError(err)
	}
	// reverse into chronological order
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// SetLastFinalized() saves the last period applied to the history
func (s *Store) SetLastFinalized(period uint64) lib.ErrorI {
	bz, err := rlp.EncodeToBytes(period)
	if err != nil {
		return lib.ErrStoreSet(err)
	}
	return s.set(finalizedKey, bz)
}

// LastFinalized() returns the last period applied to the history; ok is false if no period was applied
func (s *Store) LastFinalized() (period uint64, ok bool, e lib.ErrorI) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(finalizedKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return lib.ErrStoreGet(err)
		}
		bz, err := item.ValueCopy(nil)
		if err != nil {
			return lib.ErrStoreGet(err)
		}
		if err = rlp.DecodeBytes(bz, &period); err != nil {
			return lib.ErrDecodeRecord(err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, asStoreError(err)
	}
	return period, ok, nil
}

// Close() gracefully stops the database
func (s *Store) Close() lib.ErrorI {
	if err := s.db.Close(); err != nil {
		return lib.ErrCloseDB(err)
	}
	return nil
}

// set() writes a single key in its own transaction
func (s *Store) set(key, value []byte) lib.ErrorI {
	if err := s.db.Update(func(txn *badger.Txn) error { return txn.Set(key, value) }); err != nil {
		return lib.ErrStoreSet(err)
	}
	return nil
}

// decodeParamsChange() converts an item into a params change
func decodeParamsChange(item *badger.Item) (*lib.ParamsChange, error) {
	bz, err := item.ValueCopy(nil)
	if err != nil {
		return nil, lib.ErrStoreGet(err)
	}
	change := &lib.ParamsChange{Period: binary.BigEndian.Uint64(item.Key()[len(paramsPrefix):])}
	if err = rlp.DecodeBytes(bz, &change.Params); err != nil {
		return nil, lib.ErrDecodeRecord(err)
	}
	return change, nil
}

// periodKey() is prefix || uint64_be(period), which sorts by period
func periodKey(prefix []byte, period uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], period)
	return key
}

// asStoreError() keeps typed errors and wraps anything raw from badger
func asStoreError(err error) lib.ErrorI {
	if e, ok := err.(lib.ErrorI); ok {
		return e
	}
	return lib.ErrStoreGet(err)
}
