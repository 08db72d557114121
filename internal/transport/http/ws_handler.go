package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 16
)

// WSHandler connects players to the host of a game over a WebSocket.
type WSHandler struct {
	games    *app.GameService
	upgrader websocket.Upgrader
	rate     rate.Limit
	burst    int
}

func NewWSHandler(games *app.GameService, checkOrigin func(r *http.Request) bool, messageRate float64, messageBurst int) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	limit := rate.Limit(messageRate)
	if messageRate <= 0 {
		limit = rate.Inf
	}
	if messageBurst <= 0 {
		messageBurst = 1
	}
	return &WSHandler{
		games: games,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		rate:  limit,
		burst: messageBurst,
	}
}

// ServeWS upgrades the request and relays frames between the socket and the game's host.
// The host sends the current state as soon as the peer is registered.
func (h *WSHandler) ServeWS(c *gin.Context) {
	code := c.Param("code")
	host, err := h.games.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("game", code).Msg("ws upgrade failed")
		return
	}

	peer := newWSPeer(uuid.NewString(), conn)
	peer.log = log.With().Str("game", code).Str("peer", peer.id).Str("player", c.Query("player")).Logger()
	go peer.writePump()

	// The request context ends with the handler; host calls need their own.
	ctx := context.Background()
	if err := host.Connect(ctx, peer); err != nil {
		peer.log.Debug().Err(err).Msg("connect to host")
		peer.Close()
		return
	}
	h.readPump(ctx, host, peer)

	_ = host.Disconnect(ctx, peer.ID())
	peer.Close()
}

func (h *WSHandler) readPump(ctx context.Context, host *app.Host, peer *wsPeer) {
	conn := peer.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(h.rate, h.burst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				peer.log.Debug().Err(err).Msg("ws read")
			}
			return
		}
		if !limiter.Allow() {
			peer.log.Debug().Msg("rate limited, dropping frame")
			continue
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			peer.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		if err := host.Ingest(ctx, msg); err != nil {
			return
		}
	}
}

// wsPeer is one player socket. Frames are queued for a single writer goroutine.
type wsPeer struct {
	id   string
	conn *websocket.Conn
	log  zerolog.Logger

	mu        sync.Mutex
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSPeer(id string, conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		id:     id,
		conn:   conn,
		log:    log.Logger,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (p *wsPeer) ID() string { return p.id }

// Deliver never blocks the host: when the queue is full the oldest frame is dropped.
// Every frame is a full snapshot or a reset, so newer frames supersede older ones.
func (p *wsPeer) Deliver(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return
	default:
	}
	for {
		select {
		case p.send <- frame:
			return
		default:
			select {
			case <-p.send:
				p.log.Debug().Msg("slow peer, dropped oldest frame")
			default:
			}
		}
	}
}

func (p *wsPeer) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

func (p *wsPeer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.log.Debug().Err(err).Msg("ws write")
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.closed:
			p.flush()
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued, so a final reset reaches the player before the close.
func (p *wsPeer) flush() {
	for {
		select {
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
