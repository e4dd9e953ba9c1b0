package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/message"
	"github.com/sportifyhq/roster/internal/domain/notification"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	"github.com/sportifyhq/roster/internal/usecase"
)

type Handler struct {
	rosterService       *usecase.RosterService
	chatService         *usecase.ChatService
	notificationService *usecase.NotificationService
	bus                 *fanout.Bus
	logger              *slog.Logger
	validator           *validator.Validate
}

func NewHandler(
	rosterService *usecase.RosterService,
	chatService *usecase.ChatService,
	notificationService *usecase.NotificationService,
	bus *fanout.Bus,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		rosterService:       rosterService,
		chatService:         chatService,
		notificationService: notificationService,
		bus:                 bus,
		logger:              logger,
		validator:           validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type coordinatesDTO struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type gameDTO struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Sport         string          `json:"sport"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Location      string          `json:"location"`
	Coordinates   *coordinatesDTO `json:"coordinates,omitempty"`
	Organizer     string          `json:"organizer"`
	TotalPlayers  int             `json:"totalPlayers"`
	PlayersNeeded int             `json:"playersNeeded"`
	Participants  []string        `json:"participants"`
	SkillLevel    string          `json:"skillLevel"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"createdAt"`
}

func gameToDTO(g game.Game) gameDTO {
	dto := gameDTO{
		ID:            g.ID,
		Title:         g.Title,
		Sport:         g.Sport,
		Date:          g.Date,
		Time:          g.Time,
		Location:      g.Location,
		Organizer:     g.Organizer,
		TotalPlayers:  g.TotalPlayers,
		PlayersNeeded: g.PlayersNeeded,
		Participants:  g.Participants,
		SkillLevel:    string(g.SkillLevel),
		Status:        string(g.Status),
		CreatedAt:     g.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if g.Coordinates != nil {
		dto.Coordinates = &coordinatesDTO{
			Latitude:  g.Coordinates.Latitude,
			Longitude: g.Coordinates.Longitude,
		}
	}

	return dto
}

func gamesToDTOs(games []game.Game) []gameDTO {
	out := make([]gameDTO, 0, len(games))
	for _, g := range games {
		out = append(out, gameToDTO(g))
	}
	return out
}

type messageDTO struct {
	ID        string `json:"id"`
	GameID    string `json:"gameId"`
	AuthorID  string `json:"authorId"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

func messageToDTO(m message.Message) messageDTO {
	return messageDTO{
		ID:        m.ID,
		GameID:    m.GameID,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type notificationDTO struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipientId"`
	Kind        string `json:"kind"`
	GameID      string `json:"gameId,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Read        bool   `json:"read"`
	CreatedAt   string `json:"createdAt"`
}

func notificationToDTO(rec notification.Record) notificationDTO {
	return notificationDTO{
		ID:          rec.ID,
		RecipientID: rec.RecipientID,
		Kind:        string(rec.Kind),
		GameID:      rec.GameID,
		Title:       rec.Title,
		Body:        rec.Body,
		Read:        rec.Read,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
