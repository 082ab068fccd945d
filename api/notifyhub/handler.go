package notifyhub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/scandrop/tool"
)

var (
	// PingInterval keeps idle feeds alive through proxies; a client missing
	// two pings is dropped.
	PingInterval = 30 * time.Second
	readLimit    = int64(4096)
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // OnlyAllowLocal already restricts to loopback
	},
}

// HandleNotifyWS serves the task feed. snapshot, when set, is the first frame
// after registration so a new client starts from the current task list.
// Client frames are ignored; reading only detects disconnects and pongs.
func HandleNotifyWS(hub *Hub, snapshot func() []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("[NotifyHub] upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		hub.Register(conn)
		defer hub.Unregister(conn)
		tool.DefaultLogger.Debugf("[NotifyHub] client connected (%d total)", hub.Len())

		if snapshot != nil {
			if err := hub.SendTo(conn, snapshot()); err != nil {
				return
			}
		}

		conn.SetReadLimit(readLimit)
		_ = conn.SetReadDeadline(time.Now().Add(2 * PingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * PingInterval))
		})

		stop := make(chan struct{})
		defer close(stop)
		go hub.keepAlive(conn, stop)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := h.ping(conn); err != nil {
				return
			}
		}
	}
}
