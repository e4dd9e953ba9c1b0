package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/sportifyhq/roster/internal/domain/event"
	"github.com/sportifyhq/roster/internal/domain/notification"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	"github.com/sportifyhq/roster/internal/usecase"
)

const (
	streamBufferSize  = 32
	heartbeatInterval = 25 * time.Second
)

type streamFrame struct {
	name string
	data []byte
}

type eventStreamDTO struct {
	Kind         string   `json:"kind"`
	GameID       string   `json:"gameId"`
	Game         gameDTO  `json:"game"`
	ActingUserID string   `json:"actingUserId,omitempty"`
	JoinedUserID string   `json:"joinedUserId,omitempty"`
	LeftUserID   string   `json:"leftUserId,omitempty"`
	Changed      []string `json:"changedFields,omitempty"`
	MessageID    string   `json:"messageId,omitempty"`
	MessageText  string   `json:"messageText,omitempty"`
	OccurredAt   string   `json:"occurredAt"`
}

// StreamEvents is the live edge: an SSE stream carrying the roster events of
// the caller's game rooms plus their direct user-topic notices. A slow
// consumer loses frames instead of blocking the bus.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamEvents")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: streaming unsupported", usecase.ErrDependencyUnavailable))
		return
	}

	frames := make(chan streamFrame, streamBufferSize)

	userTopic := fanout.UserTopic(principal.UserID)
	h.bus.JoinRoom(userTopic, principal.UserID)
	h.bus.Attach(principal.UserID, func(_ context.Context, topic string, payload any) {
		frame, ok := frameFor(payload)
		if !ok {
			return
		}
		select {
		case frames <- frame:
		default:
			// Buffer full: drop rather than stall the fanout pool.
			h.logger.Warn("sse frame dropped", "user", principal.UserID, "topic", topic)
		}
	})
	defer func() {
		h.bus.Detach(principal.UserID)
		h.bus.LeaveRoom(userTopic, principal.UserID)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case frame := <-frames:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.name, frame.data)
			flusher.Flush()
		}
	}
}

func frameFor(payload any) (streamFrame, bool) {
	switch p := payload.(type) {
	case event.Event:
		dto := eventStreamDTO{
			Kind:         string(p.Kind),
			GameID:       p.GameID,
			Game:         gameToDTO(p.Game),
			ActingUserID: p.ActingUserID,
			JoinedUserID: p.Delta.JoinedUserID,
			LeftUserID:   p.Delta.LeftUserID,
			Changed:      p.Delta.ChangedFields,
			MessageID:    p.Delta.MessageID,
			MessageText:  p.Delta.MessageText,
			OccurredAt:   p.OccurredAt.UTC().Format(time.RFC3339Nano),
		}
		data, err := sonic.Marshal(dto)
		if err != nil {
			return streamFrame{}, false
		}
		return streamFrame{name: string(p.Kind), data: data}, true
	case notification.Record:
		data, err := sonic.Marshal(notificationToDTO(p))
		if err != nil {
			return streamFrame{}, false
		}
		return streamFrame{name: "notification", data: data}, true
	default:
		return streamFrame{}, false
	}
}
