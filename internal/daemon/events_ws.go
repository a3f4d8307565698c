package daemon

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"vidtools/internal/events"
	"vidtools/internal/logging"
)

const (
	eventBatchLimit = 256
	wsWriteTimeout  = 10 * time.Second
)

// handleJobEvents streams a job's events over a websocket: buffered history
// first, then live events, closing after the terminal one.
func (s *apiServer) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	var since uint64
	if value := r.URL.Query().Get("since"); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be a sequence number")
			return
		}
		since = parsed
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hub := s.daemon.hub
	evts, next, _ := hub.Fetch(ctx, jobID, since, eventBatchLimit, false)
	if len(evts) == 0 && since == 0 {
		// History may have been evicted; fall back to the stored row.
		if job, err := s.daemon.store.Get(ctx, jobID); err == nil && job != nil && job.State.Terminal() {
			s.writeEvent(conn, events.Event{
				Timestamp:  job.UpdatedAt,
				JobID:      job.ID,
				Operation:  job.Operation,
				State:      job.State,
				Stage:      job.Stage,
				Percent:    job.Progress,
				Message:    job.Message,
				OutputFile: job.OutputFile,
				Error:      job.Error,
			})
			return
		}
	}

	for {
		for _, evt := range evts {
			if !s.writeEvent(conn, evt) {
				return
			}
			if evt.State.Terminal() {
				return
			}
		}
		since = next
		var err error
		evts, next, err = hub.Fetch(ctx, jobID, since, eventBatchLimit, true)
		if err != nil {
			return
		}
	}
}

// writeEvent sends evt and, for terminal events, a normal close frame.
func (s *apiServer) writeEvent(conn *websocket.Conn, evt events.Event) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(evt); err != nil {
		s.logger.Debug("websocket write failed", logging.Error(err))
		return false
	}
	if evt.State.Terminal() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(evt.State))
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	return true
}
