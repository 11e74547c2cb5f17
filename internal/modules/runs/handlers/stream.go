package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/tradepath/internal/events"
	"github.com/aristath/tradepath/internal/modules/runs"
	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer   = 256
	writeTimeout   = 5 * time.Second
	heartbeatEvery = 30 * time.Second
)

// HandleStream handles GET /api/simulations/{id}/stream.
// Frame events of the run are forwarded over a websocket until the run finishes.
// Each heartbeat re-reads the run so a dropped terminal event still ends the stream.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// subscribe before reading the status so no terminal event is missed
	ch, unsubscribe := h.events.Subscribe(events.ForRun(id), streamBuffer)
	defer unsubscribe()

	run, err := h.reader.Get(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	ctx := conn.CloseRead(r.Context())
	log := h.log.With().Str("run_id", id).Logger()
	log.Debug().Msg("Client connected to run stream")

	if err := h.send(ctx, conn, map[string]interface{}{"type": "snapshot", "run": run}); err != nil {
		return
	}
	if finished(run) {
		conn.Close(websocket.StatusNormalClosure, string(run.Status))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Client disconnected from run stream")
			return

		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := h.send(ctx, conn, event); err != nil {
				log.Debug().Err(err).Msg("Failed to write event")
				return
			}
			if event.Type.Terminal() {
				conn.Close(websocket.StatusNormalClosure, string(event.Type))
				return
			}

		case <-heartbeat.C:
			if current, err := h.reader.Get(id); err == nil && finished(current) {
				log.Debug().Str("status", string(current.Status)).Msg("Run finished without a terminal event")
				if err := h.send(ctx, conn, map[string]interface{}{"type": "snapshot", "run": current}); err != nil {
					return
				}
				conn.Close(websocket.StatusNormalClosure, string(current.Status))
				return
			}
			if err := h.send(ctx, conn, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}

func finished(run *runs.Run) bool {
	return run.Status == runs.StatusCompleted || run.Status == runs.StatusFailed
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, v)
}
