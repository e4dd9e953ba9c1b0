package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sportifyhq/roster/internal/domain/event"
	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/message"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	idgen "github.com/sportifyhq/roster/internal/platform/id"
)

const maxMessageLength = 500

// ChatService gates a game's chat room to its participants and emits each
// stored message as a new_message event on the game topic.
type ChatService struct {
	games    game.Repository
	messages message.Repository
	bus      EventBus
	idGen    idgen.Generator
	logger   *slog.Logger
	now      func() time.Time
}

func NewChatService(
	games game.Repository,
	messages message.Repository,
	bus EventBus,
	idGen idgen.Generator,
	logger *slog.Logger,
) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatService{
		games:    games,
		messages: messages,
		bus:      bus,
		idGen:    idGen,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ChatService) PostMessage(ctx context.Context, gameID, authorID, text string) (message.Message, error) {
	ctx, span := startUsecaseSpan(ctx, "ChatService.PostMessage")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return message.Message{}, fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}
	if len(text) > maxMessageLength {
		return message.Message{}, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, maxMessageLength)
	}

	g, err := s.requireParticipant(ctx, gameID, authorID)
	if err != nil {
		return message.Message{}, err
	}
	if g.Status == game.StatusCancelled {
		return message.Message{}, game.ErrGameCancelled
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return message.Message{}, fmt.Errorf("generate message id: %w", err)
	}

	m := message.Message{
		ID:        id,
		GameID:    gameID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Insert(ctx, m); err != nil {
		return message.Message{}, fmt.Errorf("store message: %w", err)
	}

	evt := event.Event{
		Kind:         event.KindNewMessage,
		GameID:       gameID,
		Game:         g,
		ActingUserID: authorID,
		Delta:        event.Delta{MessageID: m.ID, MessageText: m.Text},
		OccurredAt:   m.CreatedAt,
	}
	if err := s.bus.Publish(ctx, fanout.GameTopic(gameID), evt); err != nil {
		s.logger.ErrorContext(ctx, "publish chat event", "gameID", gameID, "error", err)
	}

	return m, nil
}

func (s *ChatService) ListMessages(ctx context.Context, gameID, requesterID string) ([]message.Message, error) {
	ctx, span := startUsecaseSpan(ctx, "ChatService.ListMessages")
	defer span.End()

	if _, err := s.requireParticipant(ctx, gameID, requesterID); err != nil {
		return nil, err
	}

	history, err := s.messages.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return history, nil
}

func (s *ChatService) requireParticipant(ctx context.Context, gameID, userID string) (game.Game, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return game.Game{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	g, ok, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game: %w", err)
	}
	if !ok {
		return game.Game{}, game.ErrNotFound
	}
	if !g.HasParticipant(userID) {
		return game.Game{}, game.ErrNotParticipant
	}

	return g, nil
}
