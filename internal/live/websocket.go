package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Stream upgrades the request to a websocket and writes updates for
// household until the client goes away or the hub closes. When initial is
// non-nil it is sent first.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, household string, initial *Update, originPatterns []string) {
	// Subscribe before the handshake so no update published after the client
	// connects is missed.
	sub := h.Subscribe(household)
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
	if err != nil {
		slog.Warn("websocket accept failed", "household", household, "error", err)
		return
	}
	defer conn.CloseNow()

	// The stream is write-only; CloseRead handles pings and client close.
	ctx := conn.CloseRead(r.Context())

	if initial != nil {
		if err := write(ctx, conn, *initial); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := write(ctx, conn, u); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("websocket write failed", "household", household, "error", err)
				}
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, u Update) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, u)
}
