package transport

import (
	"net/http"
	"time"

	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
	"foodcourt/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var orderBoardUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const wsKeepAlivePingInterval = 30 * time.Second

// handleOrderBoardWS streams live order events for one restaurant to a
// read-only websocket client: kitchen and front-of-house boards, not a
// command channel. Registered ahead of middleware.Compress in the router
// since the upgrade needs an http.Hijacker.
func (svc *Services) handleOrderBoardWS(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantId")
	principal := principalFrom(r)
	if err := svc.Oracle.Authorize(r.Context(), principal, identity.VerbReadOrder, identity.Resource{RestaurantID: restaurantID}); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := orderBoardUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.GetLogger(r.Context()).Warn("[TRANSPORT] action=ws_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ch, unsub := svc.PubSub.Subscribe(ctx, eventbus.RestaurantOrdersTopic(restaurantID))
	defer unsub()

	ticker := time.NewTicker(wsKeepAlivePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
