// Package iocache persists repository snapshots and fetch run history.
package iocache

import (
	"sync"

	"github.com/huangsam/repostats/internal/contract"
)

// CacheStoreManager manages the snapshot and run history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	snapshots    contract.CacheStore
	runs         contract.RunStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetSnapshotStore returns the snapshot CacheStore.
func (mgr *CacheStoreManager) GetSnapshotStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.snapshots
}

// GetRunStore returns the fetch run RunStore.
func (mgr *CacheStoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
