package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// Store persists collections as JSONB documents in a single table keyed by
// (collection, key).
type Store struct {
	db     *sqlx.DB
	logger core.Logger
}

var _ school.Store = (*Store)(nil)

func NewStore(db *sqlx.DB, logger core.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// LoadAll loads every collection concurrently. Collection loads are isolated:
// a failing collection is logged and comes back empty while the rest still
// load. Each loader fills a distinct snapshot field, so no locking is needed.
func (st *Store) LoadAll(ctx context.Context) (school.Snapshot, error) {
	var snap school.Snapshot
	var wg sync.WaitGroup
	for _, col := range school.AllCollections {
		wg.Add(1)
		go func(col school.Collection) {
			defer wg.Done()
			if err := st.loadCollection(ctx, col, &snap); err != nil {
				st.logger.Error(fmt.Sprintf("loading collection %s: %v", col, err), err)
			}
		}(col)
	}
	wg.Wait()
	return snap, nil
}

func (st *Store) loadCollection(ctx context.Context, col school.Collection, snap *school.Snapshot) error {
	rows, err := st.db.QueryContext(ctx, "SELECT key, doc FROM documents WHERE collection = $1", string(col))
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var raw []byte
		if err = rows.Scan(&key, &raw); err != nil {
			return errors.Wrap(err, "scanning document")
		}
		if err = snap.AddDoc(col, raw); err != nil {
			// a bad document only loses itself, never the collection
			st.logger.Error(fmt.Sprintf("decoding %s/%s: %v", col, key, err), err)
		}
	}
	return errors.Wrap(rows.Err(), "iterating documents")
}

func (st *Store) Save(ctx context.Context, col school.Collection, key string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s/%s", col, key)
	}
	_, err = st.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, doc, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		string(col), key, raw,
	)
	return errors.Wrapf(err, "upserting %s/%s", col, key)
}

func (st *Store) Delete(ctx context.Context, col school.Collection, key string) error {
	_, err := st.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND key = $2", string(col), key)
	return errors.Wrapf(err, "deleting %s/%s", col, key)
}

// Seed bulk-writes a collection in one transaction.
func (st *Store) Seed(ctx context.Context, col school.Collection, docs map[string]interface{}) error {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning seed tx")
	}
	defer func() { _ = tx.Rollback() }()

	for key, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrapf(err, "marshaling %s/%s", col, key)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, key, doc, updated_at) VALUES ($1, $2, $3, now())
			 ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
			string(col), key, raw,
		); err != nil {
			return errors.Wrapf(err, "seeding %s/%s", col, key)
		}
	}
	return errors.Wrap(tx.Commit(), "committing seed tx")
}

// Wipe bulk-deletes the given collections in one transaction.
func (st *Store) Wipe(ctx context.Context, cols ...school.Collection) error {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning wipe tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, col := range cols {
		if _, err = tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = $1", string(col)); err != nil {
			return errors.Wrapf(err, "wiping %s", col)
		}
	}
	return errors.Wrap(tx.Commit(), "committing wipe tx")
}
