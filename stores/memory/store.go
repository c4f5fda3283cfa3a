package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/sirupsen/logrus"
)

type collection struct {
	items map[string]*core.Item
	// order keeps insertion order, the fetch order of List.
	order []string
}

// memStore keeps items in process memory.
type memStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{collections: make(map[string]*collection)}
}

func (s *memStore) List(ctx context.Context, name string) ([]*core.Item, error) {
	if err := core.ValidateCollection(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return []*core.Item{}, nil
	}

	items := make([]*core.Item, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, c.items[id].Clone())
	}

	logrus.WithField("collection", name).Debugf("Listed %d items", len(items))
	return items, nil
}

func (s *memStore) Get(ctx context.Context, name, id string) (*core.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithFields(logrus.Fields{"collection": name, "item_id": id})

	c, ok := s.collections[name]
	if !ok {
		log.Warn("Collection has no items")
		return nil, fmt.Errorf("item with id %s not found in %s: %w", id, name, core.ErrNotFound)
	}
	item, ok := c.items[id]
	if !ok {
		log.Warn("Item not found")
		return nil, fmt.Errorf("item with id %s not found in %s: %w", id, name, core.ErrNotFound)
	}

	return item.Clone(), nil
}

func (s *memStore) Save(ctx context.Context, item *core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.ID != "" {
		if err := core.ValidateID(item.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[item.Collection]
	if !ok {
		c = &collection{items: make(map[string]*core.Item)}
		s.collections[item.Collection] = c
	}

	existing := c.items[item.ID]
	item.Stamp(existing, time.Now())
	if existing == nil {
		c.order = append(c.order, item.ID)
	}
	c.items[item.ID] = item.Clone()

	logrus.WithFields(logrus.Fields{"collection": item.Collection, "item_id": item.ID}).Info("Item saved successfully")
	return nil
}

func (s *memStore) Delete(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"collection": name, "item_id": id})

	c, ok := s.collections[name]
	if !ok {
		log.Warn("Collection has no items to delete from")
		return fmt.Errorf("item with id %s not found in %s: %w", id, name, core.ErrNotFound)
	}
	if _, ok := c.items[id]; !ok {
		log.Warn("Item not found for deletion")
		return fmt.Errorf("item with id %s not found in %s: %w", id, name, core.ErrNotFound)
	}

	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	log.Info("Item deleted successfully")
	return nil
}
