package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/ndvlabs/attendance-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Ws fans attendance events out to connected dashboard clients.
// Clients only listen; sync progress and correction outcomes arrive
// over NATS and are broadcast as-is.
type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

// SubscribeEvents relays every message on the event topic to all
// connected clients.
func (s *Ws) SubscribeEvents(nc *nats.Conn, topic string) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(topic, func(msgNats *nats.Msg) {
		message := &comm.Message{}
		if err := json.Unmarshal(msgNats.Data, &message); err != nil {
			log.Errorf("Error %s", err)
			return
		}
		s.Broadcast(message)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *Ws) Broadcast(m *comm.Message) {
	s.connMap.Range(func(key, value interface{}) bool {
		conn := value.(*websocket.Conn)
		if err := conn.WriteJSON(m); err != nil {
			log.Warnf("dropping ws client %s: %v", key.(string), err)
			conn.Close()
			s.connMap.Delete(key)
		}
		return true // continue iterating
	})
}
