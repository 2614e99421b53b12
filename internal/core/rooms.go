package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/domain"
)

// RoomIndex is the runtime membership map from conversation id to the
// sessions currently joined. Rooms exist only while someone is in them; no
// validation against conversation participant lists happens here.
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[domain.ConversationID]map[domain.SessionID]ClientConnection
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{rooms: make(map[domain.ConversationID]map[domain.SessionID]ClientConnection)}
}

// Join adds the session to the room, creating the room on first join.
// Idempotent: re-joining refreshes the stored connection.
func (r *RoomIndex) Join(conv domain.ConversationID, sid domain.SessionID, conn ClientConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[conv]
	if !ok {
		members = make(map[domain.SessionID]ClientConnection)
		r.rooms[conv] = members
	}
	members[sid] = conn
	log.Debug().Str("module", "core.rooms").Str("sid", string(sid)).Str("conversation", string(conv)).Msg("joined room")
}

// Leave removes the session from the room; no-op when absent.
func (r *RoomIndex) Leave(conv domain.ConversationID, sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[conv]
	if !ok {
		return
	}
	delete(members, sid)
	if len(members) == 0 {
		delete(r.rooms, conv)
	}
	log.Debug().Str("module", "core.rooms").Str("sid", string(sid)).Str("conversation", string(conv)).Msg("left room")
}

// DropSession removes the session from every room it joined.
func (r *RoomIndex) DropSession(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conv, members := range r.rooms {
		delete(members, sid)
		if len(members) == 0 {
			delete(r.rooms, conv)
		}
	}
}

// MemberCount reports the current size of a room.
func (r *RoomIndex) MemberCount(conv domain.ConversationID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[conv])
}

// BroadcastExcept delivers data to every member of the room except the sender.
func (r *RoomIndex) BroadcastExcept(conv domain.ConversationID, from domain.SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, conn := range r.rooms[conv] {
		if sid == from {
			continue
		}
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.rooms").Str("from", string(from)).Str("conversation", string(conv)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
