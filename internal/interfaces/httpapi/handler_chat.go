package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/sportifyhq/roster/internal/usecase"
)

type postMessageRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PostMessage")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	var req postMessageRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	m, err := h.chatService.PostMessage(ctx, gameID, principal.UserID, req.Text)
	if err != nil {
		h.logger.WarnContext(ctx, "post message failed", "gameID", gameID, "author", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, messageToDTO(m))
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMessages")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	history, err := h.chatService.ListMessages(ctx, gameID, principal.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]messageDTO, 0, len(history))
	for _, m := range history {
		items = append(items, messageToDTO(m))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
