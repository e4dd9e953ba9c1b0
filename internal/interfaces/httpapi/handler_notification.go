package httpapi

import (
	"net/http"

	"github.com/sportifyhq/roster/internal/usecase"
)

func (h *Handler) ListMyNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyNotifications")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	records, err := h.notificationService.ListFor(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed", "user", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]notificationDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, notificationToDTO(rec))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetUnreadCount")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	count, err := h.notificationService.UnreadCountFor(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "unread count failed", "user", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MarkNotificationRead")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	notificationID := r.PathValue("notificationID")

	rec, err := h.notificationService.MarkRead(ctx, notificationID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "mark notification read failed", "notificationID", notificationID, "user", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, notificationToDTO(rec))
}
