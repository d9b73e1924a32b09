// Package iocache persists query results and report history in SQL stores.
package iocache

import (
	"sync"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
)

// CacheStoreManager manages the query cache and the history store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	query        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetQueryStore returns the query result CacheStore.
func (mgr *CacheStoreManager) GetQueryStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.query
}

// GetHistoryStore returns the report HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
