// Package firestore stores items as Firestore documents, one Firestore
// collection per item collection, keyed by item ID.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fsStore struct {
	client *firestore.Client
}

// NewStore connects to Firestore for projectID. Credentials come from the
// environment, and FIRESTORE_EMULATOR_HOST redirects to the emulator.
func NewStore(projectID string) *fsStore {
	client, err := firestore.NewClient(context.Background(), projectID)
	if err != nil {
		log.Fatalf("failed to create firestore client: %v", err)
	}
	return NewStoreWithClient(client)
}

func NewStoreWithClient(client *firestore.Client) *fsStore {
	return &fsStore{client: client}
}

// encode flattens an item into document fields. Extra fields are kept, order
// stays an integer and the timestamps are stored as native Firestore timestamps.
func encode(item *core.Item) (map[string]any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["order"] = item.Order
	fields["createdAt"] = item.CreatedAt
	fields["updatedAt"] = item.UpdatedAt
	return fields, nil
}

func decode(collection string, snap *firestore.DocumentSnapshot) (*core.Item, error) {
	data, err := json.Marshal(snap.Data())
	if err != nil {
		return nil, err
	}
	var item core.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	// Documents written by other tools carry neither field.
	item.ID = snap.Ref.ID
	item.Collection = collection
	return &item, nil
}

func notFound(collection, id string) error {
	return fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
}

func (s *fsStore) List(ctx context.Context, collection string) ([]*core.Item, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	log := logrus.WithField("collection", collection)

	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	items := []*core.Item{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.WithError(err).Error("Failed to list documents")
			return nil, err
		}
		item, err := decode(collection, snap)
		if err != nil {
			log.WithError(err).Warnf("Failed to decode document %s, skipping", snap.Ref.ID)
			continue
		}
		items = append(items, item)
	}
	core.SortByCreation(items)

	log.Debugf("Listed %d items", len(items))
	return items, nil
}

func (s *fsStore) Get(ctx context.Context, collection, id string) (*core.Item, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := core.ValidateID(id); err != nil {
		return nil, err
	}

	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(collection, id)
		}
		return nil, err
	}
	return decode(collection, snap)
}

func (s *fsStore) Save(ctx context.Context, item *core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.ID != "" {
		if err := core.ValidateID(item.ID); err != nil {
			return err
		}
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var existing *core.Item
		if item.ID != "" {
			snap, err := tx.Get(s.client.Collection(item.Collection).Doc(item.ID))
			switch {
			case err == nil:
				existing, err = decode(item.Collection, snap)
				if err != nil {
					return err
				}
			case status.Code(err) != codes.NotFound:
				return err
			}
		}
		item.Stamp(existing, time.Now().UTC())

		fields, err := encode(item)
		if err != nil {
			return err
		}
		return tx.Set(s.client.Collection(item.Collection).Doc(item.ID), fields)
	})
	if err != nil {
		logrus.WithError(err).WithField("collection", item.Collection).Error("Failed to save item")
		return err
	}

	logrus.WithFields(logrus.Fields{"collection": item.Collection, "item_id": item.ID}).Info("Item saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, collection, id string) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}

	_, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return notFound(collection, id)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id}).Info("Item deleted successfully")
	return nil
}

func (s *fsStore) Close() error {
	return s.client.Close()
}
