package state

import (
	"errors"

	"wayfind/storage"
)

var stateRootKey = []byte("state/root")

// LoadRoot reads the last committed state root from the metadata store. A nil
// root denotes a fresh state.
func LoadRoot(meta storage.Database) ([]byte, error) {
	root, err := meta.Get(stateRootKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return root, err
}

// SaveRoot persists the committed state root to the metadata store.
func SaveRoot(meta storage.Database, root []byte) error {
	return meta.Put(stateRootKey, root)
}
