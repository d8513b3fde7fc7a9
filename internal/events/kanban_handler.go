package events

import (
	"context"
	"log/slog"

	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
)

// KanbanMover moves the kanban card linked to a published post into the
// tenant's "published" lane. Purely cosmetic: any failure here is logged and
// swallowed so the publish contract never depends on the planner schema.
type KanbanMover struct {
	kr repository.KanbanRepository
}

func NewKanbanMover(kr repository.KanbanRepository) *KanbanMover {
	return &KanbanMover{kr: kr}
}

func (m *KanbanMover) HandlePostPublished(ctx context.Context, event PostPublished) {
	card, err := m.kr.GetCardByPostID(ctx, event.PostID)
	if err != nil {
		slog.Info("failed to look up kanban card", "post_id", event.PostID, "error", err.Error())
		return
	}
	if card == nil {
		return
	}

	lane, err := m.kr.GetLaneByName(ctx, event.UserID, models.LanePublished)
	if err != nil {
		slog.Info("failed to look up published lane", "user_id", event.UserID, "error", err.Error())
		return
	}
	if lane == nil {
		return
	}
	if card.LaneID == lane.ID {
		return
	}

	if err := m.kr.MoveCard(ctx, card.ID, lane.ID); err != nil {
		slog.Info("failed to move kanban card", "card_id", card.ID, "error", err.Error())
	}
}
