package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store using the default AWS credential chain.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return NewStoreWithClient(s3.NewFromConfig(cfg), bucketName)
}

// NewStoreWithClient creates a store on top of an existing client.
func NewStoreWithClient(client *s3.Client, bucketName string) *s3Store {
	return &s3Store{
		s3Client: client,
		bucket:   bucketName,
	}
}

// itemKey maps an item to <collection>/<id>.json.
func itemKey(collection, id string) (string, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", err
	}
	if err := core.ValidateID(id); err != nil {
		return "", err
	}
	if path.Base(id) != id {
		return "", fmt.Errorf("invalid item id %q: must not be a path: %w", id, core.ErrInvalidItem)
	}
	return path.Join(collection, id+".json"), nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func (s *s3Store) readItem(ctx context.Context, key string) (*core.Item, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read item data: %w", err)
	}

	var item core.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item data: %w", err)
	}
	return &item, nil
}

func (s *s3Store) List(ctx context.Context, collection string) ([]*core.Item, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"collection": collection, "bucket": s.bucket})

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(collection + "/"),
	})

	items := []*core.Item{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list items in %s: %w", collection, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			item, err := s.readItem(ctx, key)
			if err != nil {
				log.WithError(err).Warnf("Failed to load object %s, skipping", key)
				continue
			}
			items = append(items, item)
		}
	}
	core.SortByCreation(items)

	log.Debugf("Listed %d items", len(items))
	return items, nil
}

func (s *s3Store) Get(ctx context.Context, collection, id string) (*core.Item, error) {
	key, err := itemKey(collection, id)
	if err != nil {
		return nil, err
	}
	item, err := s.readItem(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return item, nil
}

func (s *s3Store) Save(ctx context.Context, item *core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	var existing *core.Item
	if item.ID != "" {
		key, err := itemKey(item.Collection, item.ID)
		if err != nil {
			return err
		}
		existing, err = s.readItem(ctx, key)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to load item %s: %w", item.ID, err)
		}
	}
	item.Stamp(existing, time.Now().UTC())

	key, err := itemKey(item.Collection, item.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}

	logrus.WithFields(logrus.Fields{"collection": item.Collection, "item_id": item.ID, "key": key}).Info("Item saved successfully")
	return nil
}

func (s *s3Store) Delete(ctx context.Context, collection, id string) error {
	key, err := itemKey(collection, id)
	if err != nil {
		return err
	}

	// DeleteObject succeeds for missing keys, so check first.
	_, err = s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("item with id %s not found in %s: %w", id, collection, core.ErrNotFound)
		}
		return fmt.Errorf("failed to check item %s: %w", id, err)
	}

	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id, "key": key}).Info("Item deleted successfully")
	return nil
}
