// Package websocket pushes item change notifications to open galleries over
// Socket.IO. Clients join the room named after a collection and re-fetch
// when "items-changed" arrives.
package websocket

import (
	"fmt"
	"slices"
	"sync"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventJoin    = "join-room"
	EventLeave   = "leave-room"
	EventChanged = "items-changed"
)

type Action string

const (
	ActionSaved   Action = "saved"
	ActionDeleted Action = "deleted"
)

// Change describes one write to a collection.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Action     Action `json:"action"`
}

type ackFunc func(payload map[string]any, err error)

type Hub struct {
	srv *socketio.Server

	mu    sync.RWMutex
	rooms map[string]map[socketio.SocketId]struct{}
}

func corsOrigins(allowed []string) any {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return "*"
	}
	origins := make([]any, len(allowed))
	for i, o := range allowed {
		origins[i] = o
	}
	return origins
}

func NewHub(allowedOrigins []string) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      corsOrigins(allowedOrigins),
		Credentials: true,
	})

	h := &Hub{
		srv:   socketio.NewServer(nil, opts),
		rooms: make(map[string]map[socketio.SocketId]struct{}),
	}

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	h.srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		log := logrus.WithField("socket_id", socket.Id())
		log.Debug("Live refresh client connected")

		socket.On(EventJoin, func(datas ...any) {
			ack, collection, err := parseRoomArgs(datas)
			if err != nil {
				reply(ack, nil, err)
				return
			}
			socket.Join(socketio.Room(collection))
			count := h.track(collection, socket.Id(), true)
			log.WithField("collection", collection).Debug("Client joined collection room")
			reply(ack, map[string]any{"status": "ok", "collection": collection, "clients": count}, nil)
		})

		socket.On(EventLeave, func(datas ...any) {
			ack, collection, err := parseRoomArgs(datas)
			if err != nil {
				reply(ack, nil, err)
				return
			}
			socket.Leave(socketio.Room(collection))
			h.track(collection, socket.Id(), false)
			reply(ack, map[string]any{"status": "ok", "collection": collection}, nil)
		})

		socket.On("disconnecting", func(...any) {
			for _, room := range socket.Rooms().Keys() {
				h.track(string(room), socket.Id(), false)
			}
		})

		socket.On("disconnect", func(...any) {
			socket.RemoveAllListeners("")
			log.Debug("Live refresh client disconnected")
		})
	})

	return h
}

// track records membership and returns the room size afterwards.
func (h *Hub) track(collection string, id socketio.SocketId, joined bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[collection]
	if joined {
		if members == nil {
			members = make(map[socketio.SocketId]struct{})
			h.rooms[collection] = members
		}
		members[id] = struct{}{}
	} else if members != nil {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, collection)
		}
	}
	return len(h.rooms[collection])
}

// ActiveRooms returns the number of listening clients per collection.
func (h *Hub) ActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make(map[string]int, len(h.rooms))
	for k, v := range h.rooms {
		rooms[k] = len(v)
	}
	return rooms
}

// Notify tells every client watching change.Collection to re-fetch.
func (h *Hub) Notify(change Change) {
	err := h.srv.To(socketio.Room(change.Collection)).Emit(EventChanged, map[string]any{
		"collection": change.Collection,
		"id":         change.ID,
		"action":     string(change.Action),
	})
	if err != nil {
		logrus.WithError(err).WithField("collection", change.Collection).Warn("Failed to emit items-changed")
	}
}

func (h *Hub) Server() *socketio.Server {
	return h.srv
}

func (h *Hub) Close() {
	h.srv.Close(nil)
}

// parseRoomArgs splits a trailing ack callback off datas and validates the
// collection name in the first argument.
func parseRoomArgs(datas []any) (ackFunc, string, error) {
	var ack ackFunc
	if len(datas) > 0 {
		if ack = toAck(datas[len(datas)-1]); ack != nil {
			datas = datas[:len(datas)-1]
		}
	}
	if len(datas) == 0 {
		return ack, "", fmt.Errorf("collection is required")
	}
	collection, ok := datas[0].(string)
	if !ok {
		return ack, "", fmt.Errorf("collection must be a string")
	}
	if err := core.ValidateCollection(collection); err != nil {
		return ack, "", err
	}
	return ack, collection, nil
}

// toAck wraps the ack callback socket.io passes as the last argument.
func toAck(candidate any) ackFunc {
	fn, ok := candidate.(func([]any, error))
	if !ok {
		return nil
	}
	return func(payload map[string]any, err error) { fn([]any{payload}, err) }
}

func reply(ack ackFunc, payload map[string]any, err error) {
	if ack == nil {
		return
	}
	if err != nil {
		payload = map[string]any{"status": "error", "error": err.Error()}
	}
	ack(payload, err)
}
