package items

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Notifier is told about every successful write.
type Notifier interface {
	Notify(change websocket.Change)
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// storeError maps store errors onto HTTP statuses.
func storeError(w http.ResponseWriter, r *http.Request, err error, log *logrus.Entry, action string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		renderError(w, r, http.StatusNotFound, "Item not found")
	case errors.Is(err, core.ErrInvalidItem):
		renderError(w, r, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).Errorf("Failed to %s", action)
		renderError(w, r, http.StatusInternalServerError, "Failed to "+action)
	}
}

func collectionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	collection := chi.URLParam(r, "collection")
	if err := core.ValidateCollection(collection); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return collection, true
}

func decodeItem(w http.ResponseWriter, r *http.Request) (*core.Item, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var item core.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid item JSON")
		return nil, false
	}
	return &item, true
}

// HandleList returns every item of a collection, private ones included.
func HandleList(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection, ok := collectionParam(w, r)
		if !ok {
			return
		}

		items, err := store.List(r.Context(), collection)
		if err != nil {
			storeError(w, r, err, logrus.WithField("collection", collection), "list items")
			return
		}
		if items == nil {
			items = []*core.Item{}
		}
		render.JSON(w, r, items)
	}
}

func HandleGet(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection, ok := collectionParam(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id})

		item, err := store.Get(r.Context(), collection, id)
		if err != nil {
			storeError(w, r, err, log, "get item")
			return
		}
		render.JSON(w, r, item)
	}
}

// HandleCreate stores a new item with a server-assigned id.
func HandleCreate(store core.ItemStore, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection, ok := collectionParam(w, r)
		if !ok {
			return
		}
		item, ok := decodeItem(w, r)
		if !ok {
			return
		}
		item.ID = ""
		item.Collection = collection

		log := logrus.WithField("collection", collection)
		if err := store.Save(r.Context(), item); err != nil {
			storeError(w, r, err, log, "create item")
			return
		}
		log.WithField("item_id", item.ID).Info("Item created")
		notifier.Notify(websocket.Change{Collection: collection, ID: item.ID, Action: websocket.ActionSaved})

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, item)
	}
}

// HandlePut creates or replaces the item at the given id.
func HandlePut(store core.ItemStore, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection, ok := collectionParam(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		if err := core.ValidateID(id); err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		item, ok := decodeItem(w, r)
		if !ok {
			return
		}
		item.ID = id
		item.Collection = collection

		log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id})
		if err := store.Save(r.Context(), item); err != nil {
			storeError(w, r, err, log, "save item")
			return
		}
		log.Info("Item saved")
		notifier.Notify(websocket.Change{Collection: collection, ID: id, Action: websocket.ActionSaved})

		render.JSON(w, r, item)
	}
}

func HandleDelete(store core.ItemStore, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection, ok := collectionParam(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		log := logrus.WithFields(logrus.Fields{"collection": collection, "item_id": id})

		if err := store.Delete(r.Context(), collection, id); err != nil {
			storeError(w, r, err, log, "delete item")
			return
		}
		log.Info("Item deleted")
		notifier.Notify(websocket.Change{Collection: collection, ID: id, Action: websocket.ActionDeleted})

		w.WriteHeader(http.StatusNoContent)
	}
}
