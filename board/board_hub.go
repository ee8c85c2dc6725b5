// Package board pushes job card, complaint and worker changes to the
// shop-floor display over websockets.
package board

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/utils"
)

const (
	EventJobCardCreated = "job_card_created"
	EventJobCardUpdated = "job_card_updated"
	EventJobCardStatus  = "job_card_status"
	EventOnSiteUpdated  = "onsite_updated"
	EventWorkerUpdated  = "worker_updated"
)

const (
	sendQueueSize = 16
	writeWait     = 10 * time.Second
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub holds every connected board client.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

var boardHub = Hub{
	clients: make(map[*websocket.Conn]*client),
}

// RegisterClient adds conn and starts its writer.
func RegisterClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendQueueSize)}

	boardHub.mutex.Lock()
	boardHub.clients[conn] = c
	boardHub.mutex.Unlock()

	go c.writeLoop()
}

// UnregisterClient removes conn and closes it.
func UnregisterClient(conn *websocket.Conn) {
	boardHub.mutex.Lock()
	c, ok := boardHub.clients[conn]
	if ok {
		delete(boardHub.clients, conn)
		close(c.send)
	}
	boardHub.mutex.Unlock()
	conn.Close()
}

// ClientCount returns the number of connected clients.
func ClientCount() int {
	boardHub.mutex.Lock()
	defer boardHub.mutex.Unlock()
	return len(boardHub.clients)
}

func BroadcastJobCardCreated(jobCard *models.JobCard) {
	broadcast(Message{Event: EventJobCardCreated, Data: jobCard})
}

func BroadcastJobCardUpdated(jobCard *models.JobCard) {
	broadcast(Message{Event: EventJobCardUpdated, Data: jobCard})
}

func BroadcastJobCardStatus(jobCard *models.JobCard) {
	broadcast(Message{Event: EventJobCardStatus, Data: jobCard})
}

func BroadcastOnSiteUpdated(job *models.OnSiteJob) {
	broadcast(Message{Event: EventOnSiteUpdated, Data: job})
}

func BroadcastWorkerUpdated(worker *models.Worker) {
	broadcast(Message{Event: EventWorkerUpdated, Data: worker})
}

// broadcast queues msg for every client. A client whose queue is full is
// dropped.
func broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Errorf("Failed to marshal %s event", msg.Event)
		return
	}

	var slow []*websocket.Conn
	boardHub.mutex.Lock()
	for conn, c := range boardHub.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	boardHub.mutex.Unlock()

	for _, conn := range slow {
		utils.InfoLogger.Printf("Dropping slow board client %s", conn.RemoteAddr())
		UnregisterClient(conn)
	}
}

func (c *client) writeLoop() {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithError(err).Error("Failed to write to board client")
			go UnregisterClient(c.conn)
			// Drain until UnregisterClient closes the queue.
			for range c.send {
			}
			return
		}
	}
}
