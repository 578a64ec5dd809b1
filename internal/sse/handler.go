package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const writeDeadline = 60 * time.Second

// Handler serves the event stream at GET /api/v1/events.
//
// Query parameters:
//
//	topics         comma separated event families to receive
//	last_event_id  resume after this sequence number (the Last-Event-ID
//	               header takes precedence, as browsers send it on reconnect)
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a Handler for the given manager.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("stream not flushable", slog.String("error", err.Error()))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.ConnectFrom(resumePoint(r), parseTopics(r.URL.Query().Get("topics"))...)
	if err != nil {
		h.logger.Error("stream registration failed", slog.String("error", err.Error()))
		http.Error(w, "could not open stream", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)
	log := h.logger.With(slog.String("client_id", client.ID))

	hello := map[string]any{"client_id": client.ID, "last_seq": h.manager.LastSeq()}
	if err := h.write(w, rc, "connected", 0, hello); err != nil {
		log.Debug("stream closed before greeting", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case e, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := h.write(w, rc, string(e.Type), e.Seq, e); err != nil {
				log.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
		case <-client.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// resumePoint reads the sequence a reconnecting client last saw.
func resumePoint(r *http.Request) uint64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseTopics(raw string) []string {
	var topics []string
	for t := range strings.SplitSeq(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// write emits one frame. A zero seq omits the id line so heartbeats and the
// greeting do not move the browser's Last-Event-ID.
func (h *Handler) write(w io.Writer, rc *http.ResponseController, name string, seq uint64, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	var b strings.Builder
	if seq > 0 {
		fmt.Fprintf(&b, "id: %d\n", seq)
	}
	fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", name, body)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		h.logger.Debug("write deadline unsupported", slog.String("error", err.Error()))
	}
	return nil
}
