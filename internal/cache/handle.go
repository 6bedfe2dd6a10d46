package cache

import (
	"context"
	"sync"

	"github.com/go-gota/gota/dataframe"
)

// Handle memoizes the loaded dataset for the lifetime of a session.
// Consumers share one Handle and must treat the returned frame as read-only.
type Handle struct {
	store *Store
	build Builder

	mu     sync.Mutex
	df     *dataframe.DataFrame
	cached bool
}

// NewHandle returns a Handle over store. A nil build makes the handle
// read-only: Get returns ErrNotInitialized while the artifact is absent.
func NewHandle(store *Store, build Builder) *Handle {
	return &Handle{store: store, build: build}
}

// ReadOnly reports whether the handle has no builder.
func (h *Handle) ReadOnly() bool {
	return h.build == nil
}

// Get returns the memoized dataset, loading or building it on first use.
func (h *Handle) Get(ctx context.Context) (dataframe.DataFrame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.getLocked(ctx)
}

// Loaded reports whether a dataset is memoized and whether it came from disk.
func (h *Handle) Loaded() (loaded, fromDisk bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.df != nil, h.cached
}

// Invalidate drops the memoized dataset. The artifact on disk is untouched.
func (h *Handle) Invalidate() {
	h.mu.Lock()
	h.df = nil
	h.cached = false
	h.mu.Unlock()
}

// Reload drops the memo and loads again.
func (h *Handle) Reload(ctx context.Context) (dataframe.DataFrame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.df = nil
	h.cached = false
	return h.getLocked(ctx)
}

func (h *Handle) getLocked(ctx context.Context) (dataframe.DataFrame, error) {
	if h.df != nil {
		return *h.df, nil
	}

	df, fromDisk, err := h.store.LoadOrBuild(ctx, h.build)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	h.df = &df
	h.cached = fromDisk
	return df, nil
}
