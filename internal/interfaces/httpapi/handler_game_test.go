package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/sportifyhq/roster/internal/domain/user"
	"github.com/sportifyhq/roster/internal/infrastructure/repository/memory"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	"github.com/sportifyhq/roster/internal/usecase"
)

// stubVerifier treats the bearer token as the user id.
type stubVerifier struct{}

func (stubVerifier) VerifyToken(_ context.Context, token string) (user.Principal, error) {
	return user.Principal{UserID: token}, nil
}

type seqIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *seqIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%03d", g.next), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	games := memory.NewGameRepository(nil)
	messages := memory.NewMessageRepository()
	notifications := memory.NewNotificationRepository(100)

	bus, err := fanout.New(2, nil)
	if err != nil {
		t.Fatalf("new bus failed: %v", err)
	}
	t.Cleanup(bus.Close)

	ids := &seqIDGenerator{}
	rosterSvc := usecase.NewRosterService(games, messages, bus, nil, nil, ids, logger)
	chatSvc := usecase.NewChatService(games, messages, bus, ids, logger)
	notifSvc := usecase.NewNotificationService(notifications, bus, nil, ids, logger)

	handler := NewHandler(rosterSvc, chatSvc, notifSvc, bus, logger)

	return NewRouter(handler, stubVerifier{}, logger, []string{"*"})
}

type testEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	Data       json.RawMessage  `json:"data"`
	Error      *googleErrorBody `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var env testEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if env.APIVersion != "2.0" {
		t.Fatalf("unexpected apiVersion %q", env.APIVersion)
	}

	return env
}

const createGameBody = `{
	"title": "Sunday Football",
	"sport": "Football",
	"date": "2026-09-06",
	"time": "10:00",
	"location": "Central Park",
	"totalPlayers": 10
}`

func TestRouter_GameLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/games", "user-1", createGameBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created gameDTO
	env := decodeEnvelope(t, rec)
	if err := sonic.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created game: %v", err)
	}
	if created.ID == "" || created.PlayersNeeded != 9 {
		t.Fatalf("unexpected created game: %+v", created)
	}

	// Public fetch without a token.
	rec = doRequest(t, router, http.MethodGet, "/v1/games/"+created.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/games/"+created.ID+"/join", "user-2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var joined gameDTO
	env = decodeEnvelope(t, rec)
	if err := sonic.Unmarshal(env.Data, &joined); err != nil {
		t.Fatalf("decode joined game: %v", err)
	}
	if joined.PlayersNeeded != 8 || len(joined.Participants) != 2 {
		t.Fatalf("unexpected roster after join: %+v", joined)
	}

	// Duplicate join conflicts.
	rec = doRequest(t, router, http.MethodPost, "/v1/games/"+created.ID+"/join", "user-2", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("rejoin: expected 409, got %d", rec.Code)
	}
	env = decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Status != "ABORTED" {
		t.Fatalf("unexpected conflict body: %s", rec.Body.String())
	}

	// Only the organizer may cancel.
	rec = doRequest(t, router, http.MethodPost, "/v1/games/"+created.ID+"/cancel", "user-2", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cancel by member: expected 403, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodPost, "/v1/games/"+created.ID+"/cancel", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	// Cancelled games disappear from search.
	rec = doRequest(t, router, http.MethodGet, "/v1/games", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", rec.Code)
	}
	var list []gameDTO
	env = decodeEnvelope(t, rec)
	if err := sonic.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty search after cancel, got %d games", len(list))
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/games", "", createGameBody)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Status != "UNAUTHENTICATED" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestRouter_RejectsUnknownFields(t *testing.T) {
	router := newTestRouter(t)

	body := `{"title":"x","sport":"y","date":"2026-09-06","time":"10:00","location":"z","totalPlayers":5,"playersNeeded":3}`
	rec := doRequest(t, router, http.MethodPost, "/v1/games", "user-1", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouter_ValidationFailure(t *testing.T) {
	router := newTestRouter(t)

	body := `{"title":"","sport":"Football","date":"2026-09-06","time":"10:00","location":"Park","totalPlayers":10}`
	rec := doRequest(t, router, http.MethodPost, "/v1/games", "user-1", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty title, got %d", rec.Code)
	}
}
