package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"
)

// Backend couples a trie database with the key-value store it writes to so the
// daemon can close both together.
type Backend struct {
	kv     ethdb.KeyValueStore
	trieDB *triedb.Database
}

// NewMemoryBackend returns a backend held entirely in memory, used by tests.
func NewMemoryBackend() *Backend {
	kv := memorydb.New()
	return &Backend{
		kv:     kv,
		trieDB: triedb.NewDatabase(rawdb.NewDatabase(kv), triedb.HashDefaults),
	}
}

// NewLevelDBBackend opens (or creates) a LevelDB-backed trie database at path.
func NewLevelDBBackend(path string) (*Backend, error) {
	kv, err := leveldb.New(path, 0, 0, "wayfind/state", false)
	if err != nil {
		return nil, err
	}
	return &Backend{
		kv:     kv,
		trieDB: triedb.NewDatabase(rawdb.NewDatabase(kv), triedb.HashDefaults),
	}, nil
}

// TrieDB exposes the underlying triedb.Database.
func (b *Backend) TrieDB() *triedb.Database { return b.trieDB }

// Close releases the backing key-value store.
func (b *Backend) Close() error {
	if b == nil || b.kv == nil {
		return nil
	}
	return b.kv.Close()
}

// Trie wraps go-ethereum's trie implementation to expose a simplified API for
// the rest of the codebase while keeping access to the underlying trie
// database.
//
// The wrapper tracks the last committed root and recreates the underlying trie
// after each commit/reset so the instance can be reused across operations. The
// keys passed into Get/Update are expected to be fully hashed (keccak256)
// before insertion.
//
// Trie is not safe for concurrent use.
type Trie struct {
	backend *Backend
	trie    *gethtrie.Trie
	root    common.Hash
}

// NewTrie creates a trie on the provided backend and optional root. A nil or
// empty root denotes the empty trie.
func NewTrie(backend *Backend, root []byte) (*Trie, error) {
	rootHash := gethtypes.EmptyRootHash
	if len(root) > 0 {
		rootHash = common.BytesToHash(root)
	}
	underlying, err := gethtrie.New(gethtrie.TrieID(rootHash), backend.trieDB)
	if err != nil {
		return nil, err
	}
	return &Trie{
		backend: backend,
		trie:    underlying,
		root:    rootHash,
	}, nil
}

// Get retrieves a value from the trie for the provided key.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.trie.Get(key)
}

// Update inserts or updates a value in the trie for the provided key.
func (t *Trie) Update(key, value []byte) error {
	return t.trie.Update(key, value)
}

// Hash returns the root hash of the trie reflecting all in-memory mutations.
func (t *Trie) Hash() common.Hash {
	return t.trie.Hash()
}

// Root returns the last committed root hash.
func (t *Trie) Root() common.Hash {
	return t.root
}

// Reset discards any in-memory changes and reloads the trie at the provided
// root. It is used to roll back a failed operation.
func (t *Trie) Reset(root common.Hash) error {
	underlying, err := gethtrie.New(gethtrie.TrieID(root), t.backend.trieDB)
	if err != nil {
		return err
	}
	t.trie = underlying
	t.root = root
	return nil
}

// Commit persists the trie changes to the backing database and returns the new
// root hash. After committing the wrapper recreates the underlying trie so it
// can be reused for subsequent operations.
func (t *Trie) Commit(version uint64) (common.Hash, error) {
	parent := t.root
	newRoot, nodes := t.trie.Commit(false)
	if nodes != nil {
		merged := trienode.NewMergedNodeSet()
		if err := merged.Merge(nodes); err != nil {
			return common.Hash{}, err
		}
		if err := t.backend.trieDB.Update(newRoot, parent, version, merged, nil); err != nil {
			return common.Hash{}, err
		}
		if err := t.backend.trieDB.Commit(newRoot, false); err != nil {
			return common.Hash{}, err
		}
	}
	underlying, err := gethtrie.New(gethtrie.TrieID(newRoot), t.backend.trieDB)
	if err != nil {
		return common.Hash{}, err
	}
	t.trie = underlying
	t.root = newRoot
	return newRoot, nil
}
