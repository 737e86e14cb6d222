package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/comm"
	"github.com/hksamms/samms-services/internal/scanner"
)

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// Ws relays decoded frames from station pages into a scan session and pushes
// alerts and state back to every connected page.
type Ws struct {
	connMap sync.Map // socketId -> *client
	source  *scanner.ChanSource

	stateMu   sync.RWMutex
	lastSeq   uint64
	lastState *comm.WSMessage
}

var _ scanner.Reporter = (*Ws)(nil)

func NewWs(source *scanner.ChanSource) *Ws {
	return &Ws{source: source}
}

// handle socket message from station pages
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "frame":
		s.handleFrame(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleFrame(socketId string, msg *comm.WSMessage) {
	var frame comm.FrameData
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		log.Errorf("Error: malformed frame from %s %s", socketId, err)
		return
	}
	if frame.Raw == "" {
		return
	}

	if !s.source.Push(frame.Raw) {
		log.Debugf("frame from %s dropped, session busy", socketId)
	}
}

// Report pushes an operator alert to every page.
func (s *Ws) Report(a scanner.Alert) {
	data, err := json.Marshal(comm.AlertData{
		Kind:    string(a.Kind),
		Title:   a.Title,
		Message: a.Message,
		At:      time.Now().UTC(),
	})
	if err != nil {
		log.Errorf("error [Report] marshaling alert %s", err)
		return
	}
	s.Broadcast(&comm.WSMessage{Type: "alert", Data: data})
}

// PublishState pushes the session state; pages use it for the scan overlay.
// A snapshot older than the last published one is dropped.
func (s *Ws) PublishState(snap scanner.Snapshot) {
	state := comm.StateData{
		State:  snap.State.String(),
		Locked: snap.Locked,
		Saving: snap.Saving,
	}
	if snap.LastPayload != nil {
		state.Payload = snap.LastPayload
	}

	data, err := json.Marshal(state)
	if err != nil {
		log.Errorf("error [PublishState] marshaling state %s", err)
		return
	}
	msg := &comm.WSMessage{Type: "state", Data: data}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if snap.Seq != 0 && snap.Seq <= s.lastSeq {
		log.Debugf("dropping stale state %s (seq %d, last %d)", state.State, snap.Seq, s.lastSeq)
		return
	}
	s.lastSeq = snap.Seq
	s.lastState = msg

	// broadcast under the lock so pages see states in order
	s.Broadcast(msg)
}

// LastState is the most recent state message, nil before the first change.
func (s *Ws) LastState() *comm.WSMessage {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastState
}

func (s *Ws) Broadcast(msg *comm.WSMessage) {
	s.connMap.Range(func(key, value any) bool {
		if err := value.(*client).writeJSON(msg); err != nil {
			log.Errorf("Failed to send %s to socket %s: %v", msg.Type, key, err)
		}
		return true
	})
}

func (s *Ws) Send(socketId string, msg *comm.WSMessage) error {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil
	}
	return c.(*client).writeJSON(msg)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn})
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client).conn, true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

func (s *Ws) Count() int {
	count := 0
	s.connMap.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
