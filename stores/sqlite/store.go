package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	itemTableStmt := `
	CREATE TABLE IF NOT EXISTS items (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (collection, id)
	);`
	if _, err = db.Exec(itemTableStmt); err != nil {
		log.Fatalf("failed to create items table: %v", err)
	}

	indexStmt := `CREATE INDEX IF NOT EXISTS items_created ON items (collection, created_at, id);`
	if _, err = db.Exec(indexStmt); err != nil {
		log.Fatalf("failed to create items index: %v", err)
	}

	return &sqliteStore{db}
}

func decode(data []byte) (*core.Item, error) {
	var item core.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *sqliteStore) List(ctx context.Context, collection string) ([]*core.Item, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	log := logrus.WithField("collection", collection)

	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM items WHERE collection = ? ORDER BY created_at, id", collection)
	if err != nil {
		log.WithError(err).Error("Failed to list items")
		return nil, err
	}
	defer rows.Close()

	items := []*core.Item{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		item, err := decode(data)
		if err != nil {
			log.WithError(err).Warnf("Failed to decode item %s, skipping", id)
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debugf("Listed %d items", len(items))
	return items, nil
}

func (s *sqliteStore) Get(ctx context.Context, collection, id string) (*core.Item, error) {
	log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id})

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM items WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Item with specified ID not found")
			return nil, fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve item")
		return nil, err
	}
	return decode(data)
}

func (s *sqliteStore) Save(ctx context.Context, item *core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing *core.Item
	if item.ID != "" {
		var createdAt int64
		err = tx.QueryRowContext(ctx, "SELECT created_at FROM items WHERE collection = ? AND id = ?", item.Collection, item.ID).Scan(&createdAt)
		switch {
		case err == nil:
			existing = &core.Item{CreatedAt: time.Unix(0, createdAt).UTC()}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	item.Stamp(existing, time.Now().UTC())

	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{"collection": item.Collection, "item_id": item.ID, "data_length": len(data)})

	if existing != nil {
		_, err = tx.ExecContext(ctx, "UPDATE items SET data = ?, updated_at = ? WHERE collection = ? AND id = ?",
			data, item.UpdatedAt.UnixNano(), item.Collection, item.ID)
	} else {
		_, err = tx.ExecContext(ctx, "INSERT INTO items (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			item.Collection, item.ID, data, item.CreatedAt.UnixNano(), item.UpdatedAt.UnixNano())
	}
	if err != nil {
		log.WithError(err).Error("Failed to save item")
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("Item saved successfully")
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, collection, id string) error {
	log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id})

	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		log.WithError(err).Error("Failed to delete item")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		log.Warn("Item not found for deletion")
		return fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
	}

	log.Info("Item deleted successfully")
	return nil
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
