// internal/api/websocket.go
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/greenlit-app/greenlit/internal/models"
	"github.com/greenlit-app/greenlit/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Share links are capability tokens; the link id in the path is the
	// access check, so cross-origin upgrades are allowed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ShareHub fans shared-copy updates out to websocket viewers, one room per
// link id. It stands in for a hosted realtime backend: anyone watching a
// shared story bible sees edits as they land.
type ShareHub struct {
	mutex sync.RWMutex
	rooms map[string]map[*shareConn]struct{}
}

type shareConn struct {
	conn *websocket.Conn
	send chan interface{}
}

func NewShareHub() *ShareHub {
	return &ShareHub{rooms: make(map[string]map[*shareConn]struct{})}
}

// Broadcast pushes the updated copy to every viewer of the link. Best effort;
// viewers with a full send queue are dropped.
func (h *ShareHub) Broadcast(linkID string, copy *models.StoryBible) {
	h.mutex.RLock()
	room := h.rooms[linkID]
	conns := make([]*shareConn, 0, len(room))
	for c := range room {
		conns = append(conns, c)
	}
	h.mutex.RUnlock()

	event := map[string]interface{}{
		"type":        "shared_copy_updated",
		"story_bible": copy,
		"at":          time.Now(),
	}
	for _, c := range conns {
		select {
		case c.send <- event:
		default:
			h.remove(linkID, c)
		}
	}
}

func (h *ShareHub) add(linkID string, c *shareConn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.rooms[linkID] == nil {
		h.rooms[linkID] = make(map[*shareConn]struct{})
	}
	h.rooms[linkID][c] = struct{}{}
}

func (h *ShareHub) remove(linkID string, c *shareConn) {
	h.mutex.Lock()
	if room, ok := h.rooms[linkID]; ok {
		if _, present := room[c]; present {
			delete(room, c)
			close(c.send)
			if len(room) == 0 {
				delete(h.rooms, linkID)
			}
		}
	}
	h.mutex.Unlock()
}

// Serve upgrades the request and keeps the connection in the link's room
// until the client goes away.
func (h *ShareHub) Serve(c *gin.Context, linkID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{
			"link_id": linkID, "error": err.Error(),
		})
		return
	}

	sc := &shareConn{conn: conn, send: make(chan interface{}, 8)}
	h.add(linkID, sc)

	go func() {
		for event := range sc.send {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// Reader loop exists to detect disconnects; inbound frames are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(linkID, sc)
}
