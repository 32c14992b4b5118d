package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/generator"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
)

// イベントの種類です。
const (
	EventGenerationCompleted = "generation_completed"
	EventGenerationFailed    = "generation_failed"
)

var upgrader = websocket.Upgrader{
	// Origin は Server.handleWS で確認済み
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventMessage は WebSocket で配信する完了通知です。画像そのものは /api/jobs/{id} で取得します。
type EventMessage struct {
	Type       string     `json:"type"`
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	ImageCount int        `json:"image_count,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

func newErrorBody(err error) *errorBody {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindService
	}
	return &errorBody{Kind: kind, Message: err.Error()}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub は接続中の WebSocket クライアントへイベントを配信します。
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub は空の Hub を生成します。
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Notify は generator.Listener として使えるイベント受け口なのだ。
func (h *Hub) Notify(ev generator.Event) {
	msg := EventMessage{ID: ev.HandleID, Mode: ev.Mode.String()}
	if ev.Succeeded() {
		msg.Type = EventGenerationCompleted
		if ev.Result != nil {
			msg.ImageCount = len(ev.Result.Images)
		}
	} else {
		msg.Type = EventGenerationFailed
		msg.Error = newErrorBody(ev.Err)
	}
	h.Broadcast(msg)
}

// Broadcast は全クライアントに JSON を送ります。送信が詰まっているクライアントは切断します。
func (h *Hub) Broadcast(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.Error("イベントのエンコードに失敗しました", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, c)
			slog.Warn("送信が詰まっているクライアントを切断しました")
		}
	}
}

// Count は接続中のクライアント数を返します。
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// serveWS は接続を WebSocket に昇格して Hub に登録します。
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "WebSocket へのアップグレードに失敗しました", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.add(c)
	slog.InfoContext(r.Context(), "WebSocket クライアントが接続しました", "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump(h)
}

// readPump は切断の検知だけを行います。クライアントからのメッセージは読み捨てるのだ。
func (c *client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket エラー", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Warn("WebSocket への書き込みに失敗しました", "error", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
