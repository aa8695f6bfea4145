package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codestream-ai/codestream/internal/event"
	"github.com/codestream-ai/codestream/internal/logging"
)

// heartbeatInterval is the interval for SSE heartbeats.
const heartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, rc: http.NewResponseController(w)}, nil
}

// writeEvent writes one SSE event and flushes it.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) writeHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// events handles GET /event: streams every bus event to the client.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	writer, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := make(chan event.Event, 64)
	unsubscribe := event.SubscribeAll(func(ev event.Event) {
		select {
		case events <- ev:
		default:
			logging.Debug().Str("type", string(ev.Type)).Msg("event stream backpressure, dropping")
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writer.writeEvent(string(ev.Type), ev.Data); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := writer.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}
