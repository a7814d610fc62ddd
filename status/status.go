// Package status broadcasts loader progress to websocket viewers. The
// pipeline reports through the package-level Info/Error/Progress calls;
// with no viewer connected the messages only reach the log.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Kind int

const (
	KindInfo Kind = iota
	KindError
	KindProgress
)

type message struct {
	Kind     Kind      `json:"kind"`
	Message  string    `json:"message"`
	Progress float32   `json:"progress"`
	Time     time.Time `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	pingPeriod   = 30 * time.Second
	writeTimeout = 40 * time.Second
)

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws ping error: %v", err)
				return
			}
		}
	}
}

// NewClient attaches a websocket connection to the broadcast list and
// replays the most recent message so a fresh viewer is not blank.
func NewClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	registerClient(c)
	go c.writePump()

	mu.Lock()
	defer mu.Unlock()
	if lastMessage != nil {
		c.send <- lastMessage
	}
}

var (
	broadcast   = make(chan *message, 16)
	clients     = make(map[*client]bool)
	mu          sync.Mutex
	lastMessage []byte
)

func registerClient(c *client) {
	mu.Lock()
	defer mu.Unlock()
	clients[c] = true
}

func unregisterClient(c *client) {
	mu.Lock()
	defer mu.Unlock()
	delete(clients, c)
}

func init() {
	go func() {
		for m := range broadcast {
			data, err := json.Marshal(m)
			if err != nil {
				log.Printf("[status] marshal error: %v", err)
				continue
			}
			mu.Lock()
			lastMessage = data
			for c := range clients {
				select {
				case c.send <- data:
				default:
					// Slow client; it will catch up or time out on ping.
				}
			}
			mu.Unlock()
		}
	}()
}

func send(kind Kind, progress float32, msg string) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	broadcast <- &message{
		Kind:     kind,
		Message:  msg,
		Progress: progress,
		Time:     time.Now(),
	}
}

func Info(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	log.Printf("[status] %s", msg)
	send(KindInfo, 0, msg)
}

func Error(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	log.Printf("[status] error: %s", msg)
	send(KindError, 0, msg)
}

func Progress(progress float32, format string, a ...interface{}) {
	send(KindProgress, progress, fmt.Sprintf(format, a...))
}
