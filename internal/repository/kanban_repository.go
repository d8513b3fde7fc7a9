package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postdeckhq/postdeck/internal/models"
)

type KanbanRepository interface {
	GetCardByPostID(ctx context.Context, postID int64) (*models.KanbanCard, error)
	GetLaneByName(ctx context.Context, userID int64, name string) (*models.KanbanLane, error)
	MoveCard(ctx context.Context, cardID, laneID int64) error
}

type kanbanRepository struct {
	db *sql.DB
}

func NewKanbanRepository(db *sql.DB) KanbanRepository {
	return &kanbanRepository{db: db}
}

func (r *kanbanRepository) GetCardByPostID(ctx context.Context, postID int64) (*models.KanbanCard, error) {
	query := `SELECT id, user_id, lane_id, post_id, title, created_at, updated_at FROM kanban_cards WHERE post_id = $1`
	row := r.db.QueryRowContext(ctx, query, postID)

	var card models.KanbanCard
	var cardPostID sql.NullInt64
	err := row.Scan(&card.ID, &card.UserID, &card.LaneID, &cardPostID, &card.Title, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if cardPostID.Valid {
		card.PostID = &cardPostID.Int64
	}
	return &card, nil
}

func (r *kanbanRepository) GetLaneByName(ctx context.Context, userID int64, name string) (*models.KanbanLane, error) {
	query := `SELECT id, user_id, name, position, created_at FROM kanban_lanes WHERE user_id = $1 AND LOWER(name) = LOWER($2)`
	row := r.db.QueryRowContext(ctx, query, userID, name)

	var lane models.KanbanLane
	err := row.Scan(&lane.ID, &lane.UserID, &lane.Name, &lane.Position, &lane.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &lane, nil
}

func (r *kanbanRepository) MoveCard(ctx context.Context, cardID, laneID int64) error {
	query := `UPDATE kanban_cards SET lane_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, laneID, cardID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
