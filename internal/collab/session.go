package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"sdgplan/collab/internal/auth"
	"sdgplan/collab/internal/docsink"
	"sdgplan/collab/internal/storage"
)

type Options struct {
	Store      storage.Store
	Identifier auth.Identifier
	// Sink is optional; without it sync requests report failure.
	Sink docsink.Sink
	// Redis is optional; without it fan-out stays in process.
	Redis    *redis.Client
	PoolSize int
	Registry *Registry
}

// Server runs collaboration sessions for form rooms.
type Server struct {
	registry *Registry
	presence *presence
	fanout   fanout
	applier  *Applier
	gate     *SyncGate
	ident    auth.Identifier
	upgrader websocket.Upgrader
}

func NewServer(opts Options) *Server {
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	var fan fanout = newHub()
	if opts.Redis != nil {
		fan = newRedisHub(opts.Redis)
	}
	pool := NewPool(opts.PoolSize)
	return &Server{
		registry: registry,
		presence: newPresence(registry),
		fanout:   fan,
		applier:  NewApplier(opts.Store, pool),
		gate:     NewSyncGate(opts.Store, opts.Sink, pool),
		ident:    opts.Identifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) Gate() *SyncGate { return s.gate }

// ServeForm authenticates the request, upgrades it and runs a session in the
// room of formID until the connection ends.
func (s *Server) ServeForm(w http.ResponseWriter, r *http.Request, formID int64) {
	p, err := s.ident.Identify(r)
	if err != nil {
		glog.V(1).Infof("rejected connection to form %d: %v", formID, err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("websocket upgrade failed for form %d: %v", formID, err)
		return
	}
	c := newClient(uuid.NewString(), formID, p, conn)
	sess := &session{server: s, client: c}
	sess.run(r.Context())
}

type session struct {
	server *Server
	client *client
}

func (s *session) run(ctx context.Context) {
	c := s.client
	go c.writePump()

	joined := false
	defer func() {
		if joined {
			s.server.presence.detach(c.participant.ID, c.formID)
		}
		s.server.fanout.leave(c.formID, c)
		c.close()
		glog.Infof("session %s: %s left form %d", c.id, c.participant.ID, c.formID)
	}()

	// queued before joining the room so it precedes any broadcast
	s.reply(connectionEstablished{
		Type:    TypeConnectionEstablished,
		Message: fmt.Sprintf("Connected to form %d", c.formID),
		User:    c.participant.Name,
	})
	if err := s.server.fanout.join(ctx, c.formID, c); err != nil {
		glog.Errorf("session %s: failed to join form %d: %v", c.id, c.formID, err)
		return
	}
	s.server.presence.attach(c.participant.ID, c.formID)
	joined = true
	glog.Infof("session %s: %s joined form %d", c.id, c.participant.ID, c.formID)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glog.Warningf("session %s: read error: %v", c.id, err)
			}
			return
		}
		s.route(ctx, frame)
	}
}

// route handles one inbound frame to completion.
func (s *session) route(ctx context.Context, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("session %s: panic while handling message: %v", s.client.id, r)
			s.reply(newErrorEvent(fmt.Sprintf(msgProcessingError, r)))
		}
	}()

	msg, err := DecodeInbound(frame)
	if errors.Is(err, ErrInvalidJSON) {
		s.reply(newErrorEvent(msgInvalidJSON))
		return
	}
	if err != nil {
		s.reply(newErrorEvent(fmt.Sprintf(msgProcessingError, err)))
		return
	}

	switch m := msg.(type) {
	case FormUpdate:
		s.formUpdate(ctx, m)
	case DocSyncRequest:
		s.docSync(ctx)
	case UserTyping:
		s.broadcast(ctx, newUserTypingEvent(m))
	case CursorPosition:
		s.broadcast(ctx, newCursorPositionEvent(m))
	case Unrecognized:
		glog.V(2).Infof("session %s: ignoring message type %q", s.client.id, m.Type)
	}
}

func (s *session) formUpdate(ctx context.Context, m FormUpdate) {
	formID := s.client.formID
	path, ok := m.Path()
	if !ok {
		glog.V(1).Infof("session %s: form_update without a string field", s.client.id)
		return
	}
	value, err := m.DecodedValue()
	if err != nil {
		glog.V(1).Infof("session %s: undecodable value for %q: %v", s.client.id, path, err)
		return
	}
	glog.V(2).Infof("session %s: update form %d field %q", s.client.id, formID, path)
	if !s.server.applier.Apply(ctx, formID, path, value) {
		return
	}
	s.broadcast(ctx, newFormUpdateEvent(m))
	s.server.gate.AfterUpdate(ctx, formID)
}

func (s *session) docSync(ctx context.Context) {
	resp := syncResponse{Type: TypeDocSyncResponse}
	ok, err := s.server.gate.SyncNow(ctx, s.client.formID)
	switch {
	case err != nil:
		glog.Warningf("session %s: sync of form %d failed: %v", s.client.id, s.client.formID, err)
		resp.Message = fmt.Sprintf(msgSyncError, err)
	case ok:
		resp.Success = true
		resp.Message = msgSyncOK
	default:
		resp.Message = msgSyncFailed
	}
	s.reply(resp)
}

func (s *session) broadcast(ctx context.Context, event any) {
	payload := encode(event)
	if payload == nil {
		return
	}
	if err := s.server.fanout.publish(ctx, s.client.formID, payload); err != nil {
		glog.Warningf("session %s: broadcast failed: %v", s.client.id, err)
	}
}

// reply sends event to this connection only.
func (s *session) reply(event any) {
	payload := encode(event)
	if payload == nil {
		return
	}
	if !s.client.enqueue(payload) {
		glog.V(1).Infof("session %s: reply dropped", s.client.id)
	}
}
