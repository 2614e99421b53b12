package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/core"
	"github.com/avolkov/relay/internal/domain"
	"github.com/avolkov/relay/internal/metrics"
	"github.com/avolkov/relay/internal/store"
)

// ErrTargetOffline means the other party of a call event has no live session.
// Surfaced to the emitting client instead of letting the call ring forever.
var ErrTargetOffline = errors.New("target offline")

// Orchestrator ties sessions, presence, rooms and the call ledger together.
// Adapters feed it decoded events; it owns every cross-session effect.
type Orchestrator struct {
	Sessions *SessionRegistry
	Presence *core.PresenceRegistry
	Rooms    *core.RoomIndex
	Calls    *core.CallLedger
	Users    store.UserStore
	Policy   Policy
	Grace    time.Duration

	reaper *reaper
}

func NewOrchestrator(users store.UserStore, grace time.Duration) *Orchestrator {
	return &Orchestrator{
		Sessions: NewSessionRegistry(),
		Presence: core.NewPresenceRegistry(),
		Rooms:    core.NewRoomIndex(),
		Calls:    core.NewCallLedger(),
		Users:    users,
		Policy:   KickSlowPolicy{},
		Grace:    grace,
		reaper:   newReaper(),
	}
}

// Connect registers an authenticated session. A prior session of the same
// user is canceled: single-session presence, last connect wins.
func (o *Orchestrator) Connect(user domain.User, sid domain.SessionID, conn core.ClientConnection, cancel context.CancelFunc) {
	if prev, ok := o.Presence.SessionOf(user.ID); ok && prev != sid {
		log.Info().Str("module", "app.orchestrator").Str("user", string(user.ID)).Str("replaced_sid", string(prev)).Msg("replacing session")
		o.Sessions.Cancel(prev)
	}
	o.Sessions.Bind(sid, user, conn, cancel)
	o.reaper.Cancel(user.ID)
	o.Presence.SetOnline(user, sid)
	o.persistStatus(user.ID, true)
	o.broadcastPresence()
	metrics.ConnectionsActive.Inc()
	log.Info().Str("module", "app.orchestrator").Str("user", string(user.ID)).Str("sid", string(sid)).Msg("connected")
}

// Disconnect runs when the transport closes. Presence flips offline
// synchronously and the eviction timer starts; the entry itself survives the
// grace period in case the user comes right back.
func (o *Orchestrator) Disconnect(sid domain.SessionID) {
	user, _, ok := o.Sessions.Get(sid)
	if !ok {
		return
	}
	o.Sessions.Unbind(sid)
	o.Rooms.DropSession(sid)
	metrics.ConnectionsActive.Dec()

	// A replaced session disconnecting late must not touch the new one's
	// presence; SetOffline checks the session id for exactly that reason.
	if !o.Presence.SetOffline(user.ID, sid) {
		log.Debug().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("stale disconnect, presence untouched")
		return
	}

	// Hang up whatever the user was negotiating so the peer is not left
	// ringing against a dead session.
	for _, call := range o.Calls.DropUser(user.ID) {
		peer := call.Caller
		if peer == user.ID {
			peer = call.Callee
		}
		o.notifyUser(peer, domain.EventCallEnded, domain.CallNotice{From: user.ID})
	}

	o.persistStatus(user.ID, false)
	o.broadcastPresence()
	o.reaper.Schedule(user.ID, o.Grace, o.expire)
	log.Info().Str("module", "app.orchestrator").Str("user", string(user.ID)).Str("sid", string(sid)).Msg("disconnected")
}

// expire is the reaper's timer callback: evict only if still offline.
func (o *Orchestrator) expire(userID domain.UserID) {
	if !o.Presence.Evict(userID) {
		return
	}
	metrics.PresenceEvictions.Inc()
	o.broadcastPresence()
	log.Info().Str("module", "app.orchestrator").Str("user", string(userID)).Msg("presence evicted")
}

func (o *Orchestrator) JoinConversation(sid domain.SessionID, conv domain.ConversationID) {
	_, conn, ok := o.Sessions.Get(sid)
	if !ok {
		return
	}
	o.Rooms.Join(conv, sid, conn)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("conversation", string(conv)).Int("members", o.Rooms.MemberCount(conv)).Msg("joined conversation")
}

func (o *Orchestrator) LeaveConversation(sid domain.SessionID, conv domain.ConversationID) {
	o.Rooms.Leave(conv, sid)
}

// RelayMessage forwards an already-persisted message payload, unchanged, to
// everyone else in the conversation room. Best effort: members not joined
// miss it and catch up via fetch.
func (o *Orchestrator) RelayMessage(sid domain.SessionID, conv domain.ConversationID, payload json.RawMessage) error {
	frame, err := domain.EncodeEvent(domain.EventMessageNew, payload)
	if err != nil {
		return err
	}
	res := o.Rooms.BroadcastExcept(conv, sid, frame)
	metrics.MessagesRelayed.Inc()
	o.applyBackpressure(res.Dropped)
	return nil
}

// PlaceCall starts a handshake. The ledger enforces one unresolved call per
// pair, and an offline callee fails fast instead of ringing into the void.
func (o *Orchestrator) PlaceCall(from domain.UserID, req domain.CallRequest) error {
	if _, ok := o.Presence.SessionOf(req.To); !ok {
		return ErrTargetOffline
	}
	callType := req.CallType
	if callType == "" {
		callType = domain.CallAudio
	}
	if err := o.Calls.Place(from, req.To, callType); err != nil {
		return err
	}
	metrics.CallsPlaced.WithLabelValues(string(callType)).Inc()
	o.notifyUser(req.To, domain.EventCallIncoming, domain.CallNotice{
		From:     from,
		Signal:   req.Signal,
		CallType: callType,
	})
	log.Info().Str("module", "app.orchestrator").Str("from", string(from)).Str("to", string(req.To)).Str("type", string(callType)).Msg("call placed")
	return nil
}

// AcceptCall answers a ringing call; the answer payload travels back to the
// original caller.
func (o *Orchestrator) AcceptCall(from domain.UserID, req domain.CallRequest) error {
	if err := o.Calls.Accept(req.To, from); err != nil {
		return err
	}
	o.notifyUser(req.To, domain.EventCallAccepted, domain.CallNotice{From: from, Signal: req.Signal})
	return nil
}

func (o *Orchestrator) RejectCall(from domain.UserID, req domain.CallRequest) error {
	if err := o.Calls.Reject(req.To, from); err != nil {
		return err
	}
	o.notifyUser(req.To, domain.EventCallRejected, domain.CallNotice{From: from})
	return nil
}

func (o *Orchestrator) EndCall(from domain.UserID, req domain.CallRequest) error {
	if err := o.Calls.End(from, req.To); err != nil {
		return err
	}
	o.notifyUser(req.To, domain.EventCallEnded, domain.CallNotice{From: from})
	return nil
}

// Shutdown stops pending eviction timers.
func (o *Orchestrator) Shutdown() {
	o.reaper.Stop()
}

// notifyUser delivers one event to the user's live session, if any. Delivery
// to an offline user is a silent no-op: past the initial ring, the handshake
// stays best effort.
func (o *Orchestrator) notifyUser(userID domain.UserID, event string, payload any) bool {
	sid, ok := o.Presence.SessionOf(userID)
	if !ok {
		return false
	}
	_, conn, ok := o.Sessions.Get(sid)
	if !ok {
		return false
	}
	frame, err := domain.EncodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("event", event).Msg("encode event")
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		o.applyBackpressure([]domain.SessionID{sid})
		return false
	}
	return true
}

// broadcastPresence fans the full snapshot out to every connection. Runs on
// every presence mutation; O(connections), fine at this scale.
func (o *Orchestrator) broadcastPresence() {
	frame, err := domain.EncodeEvent(domain.EventUsersOnline, o.Presence.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode presence snapshot")
		return
	}
	var dropped []domain.SessionID
	for _, c := range o.Sessions.Connections() {
		if err := c.Conn.TrySend(frame); err != nil {
			dropped = append(dropped, c.SID)
		}
	}
	o.applyBackpressure(dropped)
}

func (o *Orchestrator) applyBackpressure(dropped []domain.SessionID) {
	if len(dropped) == 0 || o.Policy == nil {
		return
	}
	for _, sid := range dropped {
		metrics.BroadcastDropped.Inc()
		switch o.Policy.OnBackPressure(sid) {
		case KickSession:
			o.Sessions.Cancel(sid)
		case DropFrame, NoAction:
		}
	}
}

// persistStatus mirrors the presence change into the user store without ever
// blocking the relay path. Failures are logged and counted, nothing more.
func (o *Orchestrator) persistStatus(userID domain.UserID, online bool) {
	if o.Users == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.Users.UpdateOnlineStatus(ctx, userID, online, time.Now()); err != nil {
			metrics.PersistenceErrors.Inc()
			log.Warn().Err(err).Str("module", "app.orchestrator").Str("user", string(userID)).Msg("persist online status")
		}
	}()
}
