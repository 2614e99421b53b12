package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/app"
	"github.com/avolkov/relay/internal/auth"
	"github.com/avolkov/relay/internal/config"
	"github.com/avolkov/relay/internal/core"
	"github.com/avolkov/relay/internal/domain"
	"github.com/avolkov/relay/internal/metrics"
)

type WSController struct {
	Orch     *app.Orchestrator
	Verifier auth.TokenVerifier
	Cfg      *config.Config
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bearerToken pulls the credential from ?token= or the Authorization header.
func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// HandleWS authenticates the connection, upgrades it, and starts the pumps.
// An invalid credential is refused before any relay state exists.
func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	user, err := ctl.Verifier.Verify(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	pongWait := ctl.Cfg.PingPeriod * 10 / 9
	ws.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	sid := domain.SessionID(uuid.NewString())
	conn := NewWSConnection(ws, ctl.Cfg.SendBuffer, ctl.Cfg.PingPeriod)

	connCtx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(user, sid, conn, cancel)

	conn.StartWriteLoop(connCtx)
	go ctl.readPump(connCtx, sid, user, conn, ws)

	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("session established")
}

func (ctl *WSController) readPump(ctx context.Context, sid domain.SessionID, user domain.User, conn *WSConnection, ws WSConn) {
	defer func() {
		ctl.Orch.Disconnect(sid)
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("read loop exit")
				return
			}
			ctl.handleEvent(sid, user, data, conn)
		}
	}
}

// handleEvent decodes one envelope and routes it. Reply frames for the
// emitting session go through reply; everything else flows via the
// orchestrator.
func (ctl *WSController) handleEvent(sid domain.SessionID, user domain.User, data []byte, reply core.ClientConnection) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("bad envelope")
		return
	}
	metrics.EventsReceived.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case domain.EventConversationJoin:
		if conv, ok := decodeConversation(env.Data); ok {
			ctl.Orch.JoinConversation(sid, conv)
		}
	case domain.EventConversationLeave:
		if conv, ok := decodeConversation(env.Data); ok {
			ctl.Orch.LeaveConversation(sid, conv)
		}
	case domain.EventMessageNew:
		var peek domain.MessagePeek
		if err := json.Unmarshal(env.Data, &peek); err != nil || peek.Conversation == "" {
			log.Warn().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("message without conversation")
			return
		}
		if err := ctl.Orch.RelayMessage(sid, peek.Conversation, env.Data); err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("relay message")
		}
	case domain.EventCallSignal:
		ctl.handleCall(user, env.Data, reply, ctl.Orch.PlaceCall)
	case domain.EventCallAccept:
		ctl.handleCall(user, env.Data, reply, ctl.Orch.AcceptCall)
	case domain.EventCallReject:
		ctl.handleCall(user, env.Data, reply, ctl.Orch.RejectCall)
	case domain.EventCallEnd:
		ctl.handleCall(user, env.Data, reply, ctl.Orch.EndCall)
	case domain.EventPing:
		sendEvent(reply, domain.EventPong, nil)
	default:
		log.Warn().Str("module", "adapters.ws").Str("event", env.Event).Msg("unknown event")
	}
}

func (ctl *WSController) handleCall(user domain.User, data json.RawMessage, reply core.ClientConnection, op func(domain.UserID, domain.CallRequest) error) {
	var req domain.CallRequest
	if err := json.Unmarshal(data, &req); err != nil || req.To == "" {
		log.Warn().Str("module", "adapters.ws").Str("user", string(user.ID)).Msg("bad call payload")
		return
	}
	err := op(user.ID, req)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrTargetOffline):
		sendEvent(reply, domain.EventCallUnreachable, domain.CallFailure{To: req.To, Reason: "target offline"})
	default:
		sendEvent(reply, domain.EventCallError, domain.CallFailure{To: req.To, Reason: err.Error()})
	}
}

// decodeConversation accepts both the object form {"conversation": "c1"} and
// a bare "c1" string, which is what the original web client sends.
func decodeConversation(data json.RawMessage) (domain.ConversationID, bool) {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil && bare != "" {
		return domain.ConversationID(bare), true
	}
	var ref domain.ConversationRef
	if err := json.Unmarshal(data, &ref); err == nil && ref.Conversation != "" {
		return ref.Conversation, true
	}
	return "", false
}

func sendEvent(conn core.ClientConnection, event string, payload any) {
	frame, err := domain.EncodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Str("event", event).Msg("encode event")
		return
	}
	_ = conn.TrySend(frame)
}
