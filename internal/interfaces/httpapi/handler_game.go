package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/usecase"
)

type createGameRequest struct {
	Title        string   `json:"title" validate:"required,max=120"`
	Sport        string   `json:"sport" validate:"required,max=60"`
	Date         string   `json:"date" validate:"required"`
	Time         string   `json:"time" validate:"required"`
	Location     string   `json:"location" validate:"required,max=200"`
	Latitude     *float64 `json:"lat" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"lng" validate:"omitempty,longitude"`
	TotalPlayers int      `json:"totalPlayers" validate:"required,min=1,max=1000"`
	SkillLevel   string   `json:"skillLevel" validate:"omitempty,max=20"`
}

type updateGameRequest struct {
	Title        *string  `json:"title" validate:"omitempty,max=120"`
	Sport        *string  `json:"sport" validate:"omitempty,max=60"`
	Date         *string  `json:"date"`
	Time         *string  `json:"time"`
	Location     *string  `json:"location" validate:"omitempty,max=200"`
	Latitude     *float64 `json:"lat" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"lng" validate:"omitempty,longitude"`
	TotalPlayers *int     `json:"totalPlayers" validate:"omitempty,min=1,max=1000"`
	SkillLevel   *string  `json:"skillLevel" validate:"omitempty,max=20"`
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	var req createGameRequest
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

	g, err := h.rosterService.CreateGame(ctx, usecase.CreateGameInput{
		Title:        req.Title,
		Sport:        req.Sport,
		Date:         req.Date,
		Time:         req.Time,
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		TotalPlayers: req.TotalPlayers,
		SkillLevel:   req.SkillLevel,
		OrganizerID:  principal.UserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create game failed", "organizer", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, gameToDTO(g))
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGame")
	defer span.End()

	gameID := r.PathValue("gameID")
	g, err := h.rosterService.GetGame(ctx, gameID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(g))
}

func (h *Handler) SearchGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchGames")
	defer span.End()

	filters, err := searchFiltersFromQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	games, err := h.rosterService.SearchGames(ctx, filters)
	if err != nil {
		h.logger.ErrorContext(ctx, "search games failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gamesToDTOs(games))
}

func searchFiltersFromQuery(r *http.Request) (game.Filters, error) {
	q := r.URL.Query()

	filters := game.Filters{
		Sport:         strings.TrimSpace(q.Get("sport")),
		Date:          strings.TrimSpace(q.Get("date")),
		Location:      strings.TrimSpace(q.Get("location")),
		AvailableOnly: q.Get("availableOnly") == "true",
	}

	if raw := strings.TrimSpace(q.Get("skillLevel")); raw != "" {
		skill, err := game.ParseSkillLevel(raw)
		if err != nil {
			return game.Filters{}, err
		}
		filters.SkillLevel = skill
	}

	latRaw := strings.TrimSpace(q.Get("lat"))
	lngRaw := strings.TrimSpace(q.Get("lng"))
	radiusRaw := strings.TrimSpace(q.Get("radiusKm"))
	if radiusRaw == "" {
		return filters, nil
	}
	if latRaw == "" || lngRaw == "" {
		return game.Filters{}, fmt.Errorf("%w: radiusKm requires lat and lng", usecase.ErrInvalidInput)
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return game.Filters{}, fmt.Errorf("%w: invalid lat %q", usecase.ErrInvalidInput, latRaw)
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return game.Filters{}, fmt.Errorf("%w: invalid lng %q", usecase.ErrInvalidInput, lngRaw)
	}
	radius, err := strconv.ParseFloat(radiusRaw, 64)
	if err != nil || radius <= 0 {
		return game.Filters{}, fmt.Errorf("%w: invalid radiusKm %q", usecase.ErrInvalidInput, radiusRaw)
	}

	filters.Center = &game.Coordinates{Latitude: lat, Longitude: lng}
	filters.RadiusKm = radius

	return filters, nil
}

func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	var req updateGameRequest
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

	g, err := h.rosterService.UpdateGame(ctx, gameID, usecase.UpdateGameInput{
		Title:        req.Title,
		Sport:        req.Sport,
		Date:         req.Date,
		Time:         req.Time,
		Location:     req.Location,
		SkillLevel:   req.SkillLevel,
		TotalPlayers: req.TotalPlayers,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RequesterID:  principal.UserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update game failed", "gameID", gameID, "requester", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(g))
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	if err := h.rosterService.DeleteGame(ctx, gameID, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "delete game failed", "gameID", gameID, "requester", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.JoinGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	g, err := h.rosterService.JoinGame(ctx, gameID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "join game failed", "gameID", gameID, "user", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(g))
}

func (h *Handler) LeaveGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeaveGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	g, err := h.rosterService.LeaveGame(ctx, gameID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "leave game failed", "gameID", gameID, "user", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(g))
}

func (h *Handler) CancelGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}
	gameID := r.PathValue("gameID")

	g, err := h.rosterService.CancelGame(ctx, gameID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "cancel game failed", "gameID", gameID, "requester", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(g))
}

func (h *Handler) ListMyGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyGames")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	games, err := h.rosterService.ListUserGames(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list my games failed", "user", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gamesToDTOs(games))
}
