package stores

import (
	"github.com/amgst/vancegraphix.com.au-sub000/config"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/stores/aws"
	"github.com/amgst/vancegraphix.com.au-sub000/stores/filesystem"
	"github.com/amgst/vancegraphix.com.au-sub000/stores/firestore"
	"github.com/amgst/vancegraphix.com.au-sub000/stores/memory"
	"github.com/amgst/vancegraphix.com.au-sub000/stores/sqlite"
	"github.com/sirupsen/logrus"
)

func GetStore(cfg config.Storage) core.ItemStore {
	var store core.ItemStore

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store = filesystem.NewStore(cfg.LocalPath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		if cfg.S3Bucket == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3Bucket
		store = aws.NewStore(cfg.S3Bucket)
	case "firestore":
		if cfg.FirestoreProject == "" {
			logrus.Fatal("FIRESTORE_PROJECT_ID environment variable must be set for firestore storage type")
		}
		storageField["projectId"] = cfg.FirestoreProject
		store = firestore.NewStore(cfg.FirestoreProject)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
