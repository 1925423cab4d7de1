package iocache

import (
	"fmt"
	"sync"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// StoreOptions selects the backends of the snapshot cache and the run history.
type StoreOptions struct {
	CacheBackend   schema.DatabaseBackend
	CacheDir       string
	CacheDBConnect string
	RunsBackend    schema.DatabaseBackend
	RunsDBConnect  string
}

// StoreOptionsFromConfig extracts the store selection of a validated configuration.
func StoreOptionsFromConfig(cfg *contract.Config) StoreOptions {
	return StoreOptions{
		CacheBackend:   cfg.CacheBackend,
		CacheDir:       cfg.CacheDir,
		CacheDBConnect: cfg.CacheDBConnect,
		RunsBackend:    cfg.RunsBackend,
		RunsDBConnect:  cfg.RunsDBConnect,
	}
}

// NewCacheStore opens the snapshot blob store of a backend.
func NewCacheStore(backend schema.DatabaseBackend, dir, connStr string) (contract.CacheStore, error) {
	switch backend {
	case schema.JSONBackend, "":
		return NewFileStore(dir)
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLStore(backend, connStr)
	case schema.RedisBackend:
		return NewRedisStore(connStr)
	case schema.NoneBackend:
		return NoopStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s. Must be json, sqlite, mysql, postgresql, redis, or none", backend)
	}
}

// NewManager opens both stores and returns a manager owning them.
func NewManager(opts StoreOptions) (*CacheStoreManager, error) {
	snapshots, err := NewCacheStore(opts.CacheBackend, opts.CacheDir, opts.CacheDBConnect)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot cache: %w", err)
	}
	runs, err := NewRunStore(opts.RunsBackend, opts.RunsDBConnect)
	if err != nil {
		_ = snapshots.Close()
		return nil, fmt.Errorf("failed to initialize run history: %w", err)
	}
	return &CacheStoreManager{snapshots: snapshots, runs: runs}, nil
}

// Close closes both stores of the manager.
func (mgr *CacheStoreManager) Close() {
	mgr.Lock()
	defer mgr.Unlock()
	if mgr.snapshots != nil {
		_ = mgr.snapshots.Close()
	}
	if mgr.runs != nil {
		_ = mgr.runs.Close()
	}
}

// InitStores initializes the global manager with the snapshot and run history stores.
func InitStores(opts StoreOptions) error {
	var initErr error

	initOnce.Do(func() {
		// This function body runs exactly once, even with concurrent calls.
		mgr, err := NewManager(opts)
		if err != nil {
			initErr = err
			return
		}
		Manager.Lock()
		defer Manager.Unlock()
		Manager.snapshots = mgr.snapshots
		Manager.runs = mgr.runs
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(Manager.Close)
}
