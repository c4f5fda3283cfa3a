package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/sirupsen/logrus"
)

const fileExt = ".json"

type fsStore struct {
	basePath string
	// mu serialises read-modify-write cycles in Save.
	mu sync.Mutex
}

// NewStore creates a new filesystem-based store rooted at basePath.
// Items live at <basePath>/<collection>/<id>.json.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) collectionPath(collection string) (string, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, collection), nil
}

func (s *fsStore) itemPath(collection, id string) (string, error) {
	dir, err := s.collectionPath(collection)
	if err != nil {
		return "", err
	}
	if err := core.ValidateID(id); err != nil {
		return "", err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absFile, err := filepath.Abs(filepath.Join(dir, id+fileExt))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absFile, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path for item %s: access denied", id)
	}
	return absFile, nil
}

func readItem(path string) (*core.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var item core.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *fsStore) List(ctx context.Context, collection string) ([]*core.Item, error) {
	dir, err := s.collectionPath(collection)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"collection": collection, "path": dir})

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Collection directory does not exist, returning empty list")
			return []*core.Item{}, nil
		}
		log.WithError(err).Error("Failed to read collection directory")
		return nil, err
	}

	items := make([]*core.Item, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != fileExt {
			continue
		}
		item, err := readItem(filepath.Join(dir, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read item file %s, skipping", file.Name())
			continue
		}
		items = append(items, item)
	}
	core.SortByCreation(items)

	log.Debugf("Listed %d items", len(items))
	return items, nil
}

func (s *fsStore) Get(ctx context.Context, collection, id string) (*core.Item, error) {
	path, err := s.itemPath(collection, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id, "path": path})

	item, err := readItem(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Item file not found")
			return nil, fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read item file")
		return nil, err
	}
	return item, nil
}

func (s *fsStore) Save(ctx context.Context, item *core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *core.Item
	if item.ID != "" {
		path, err := s.itemPath(item.Collection, item.ID)
		if err != nil {
			return err
		}
		existing, err = readItem(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	item.Stamp(existing, time.Now())

	path, err := s.itemPath(item.Collection, item.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"collection": item.Collection, "item_id": item.ID, "path": path})

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.WithError(err).Error("Failed to create collection directory")
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		log.WithError(err).Error("Failed to marshal item for saving")
		return err
	}

	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write item file")
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		log.WithError(err).Error("Failed to move item file into place")
		return err
	}

	log.Info("Item saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, collection, id string) error {
	path, err := s.itemPath(collection, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id, "path": path})

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Item file not found for deletion")
			return fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to delete item file")
		return err
	}

	log.Info("Item deleted successfully")
	return nil
}
