package inmemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// Store is a map-backed document store for tests and local development.
// Documents are kept as serialized JSON so (de)serialization behaves exactly
// like a remote store, empty-field stripping included.
type Store struct {
	mu     sync.RWMutex
	data   map[school.Collection]map[string][]byte
	logger core.Logger
}

var _ school.Store = (*Store)(nil)

func New(logger core.Logger) *Store {
	data := make(map[school.Collection]map[string][]byte, len(school.AllCollections))
	for _, col := range school.AllCollections {
		data[col] = make(map[string][]byte)
	}
	return &Store{data: data, logger: logger}
}

func (st *Store) LoadAll(_ context.Context) (school.Snapshot, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var snap school.Snapshot
	for _, col := range school.AllCollections {
		for key, raw := range st.data[col] {
			if err := snap.AddDoc(col, raw); err != nil {
				// a bad document only loses itself, never the collection
				st.logger.Error(fmt.Sprintf("loading %s/%s: %v", col, key, err), err)
			}
		}
	}
	return snap, nil
}

func (st *Store) Save(_ context.Context, col school.Collection, key string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s/%s", col, key)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	docs, ok := st.data[col]
	if !ok {
		return errors.Errorf("unknown collection %q", col)
	}
	docs[key] = raw
	return nil
}

func (st *Store) Delete(_ context.Context, col school.Collection, key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if docs, ok := st.data[col]; ok {
		delete(docs, key)
	}
	return nil
}

func (st *Store) Seed(ctx context.Context, col school.Collection, docs map[string]interface{}) error {
	for key, doc := range docs {
		if err := st.Save(ctx, col, key, doc); err != nil {
			return err
		}
	}
	return nil
}

func (st *Store) Wipe(_ context.Context, cols ...school.Collection) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, col := range cols {
		st.data[col] = make(map[string][]byte)
	}
	return nil
}
