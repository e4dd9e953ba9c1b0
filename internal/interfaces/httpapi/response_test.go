package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/notification"
	"github.com/sportifyhq/roster/internal/usecase"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"invalid input", usecase.ErrInvalidInput, http.StatusBadRequest, "invalidInput"},
		{"invalid spec", game.ErrInvalidSpec, http.StatusBadRequest, "invalidInput"},
		{"cancelled game", game.ErrGameCancelled, http.StatusBadRequest, "invalidInput"},
		{"game not found", game.ErrNotFound, http.StatusNotFound, "notFound"},
		{"notification not found", notification.ErrNotFound, http.StatusNotFound, "notFound"},
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"not organizer", game.ErrNotOrganizer, http.StatusForbidden, "forbidden"},
		{"not owner", notification.ErrNotOwner, http.StatusForbidden, "forbidden"},
		{"duplicate", game.ErrDuplicateGame, http.StatusConflict, "rosterConflict"},
		{"already joined", game.ErrAlreadyJoined, http.StatusConflict, "rosterConflict"},
		{"full", game.ErrGameFull, http.StatusConflict, "rosterConflict"},
		{"not participant", game.ErrNotParticipant, http.StatusConflict, "rosterConflict"},
		{"dependency down", usecase.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependencyUnavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internalError"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapError(context.Background(), tc.err)
			if mapped.HTTPStatus != tc.status {
				t.Fatalf("status = %d, want %d", mapped.HTTPStatus, tc.status)
			}
			if mapped.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", mapped.Reason, tc.reason)
			}
		})
	}
}

func TestMapError_UnwrapsWrappedSentinels(t *testing.T) {
	err := fmt.Errorf("join game: %w", game.ErrGameFull)

	mapped := mapError(context.Background(), err)
	if mapped.HTTPStatus != http.StatusConflict || mapped.Status != "ABORTED" {
		t.Fatalf("wrapped sentinel mapped to %d/%s", mapped.HTTPStatus, mapped.Status)
	}
}
