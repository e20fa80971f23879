package websocket

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	ws "github.com/coder/websocket"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients. The lists query parameter selects
// which list channels the client receives; canAccess filters out lists the
// caller is not a member of.
func HandleWebSocket(hub *Hub, canAccess func(r *http.Request, listID int64) bool, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listIDs := parseListIDs(r.URL.Query().Get("lists"))
		allowed := listIDs[:0]
		for _, id := range listIDs {
			if canAccess(r, id) {
				allowed = append(allowed, id)
			}
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, allowed)
		client.Run(r.Context())
	}
}

func parseListIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
